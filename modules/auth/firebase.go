package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseProvider - Firebase Auth (Identity Toolkit REST) 이메일/비밀번호 로그인
type FirebaseProvider struct {
	service *identitytoolkit.Service
	now     func() time.Time
}

// NewFirebaseProvider - 웹 API 키로 Identity Toolkit 서비스 생성
// 추가 옵션은 테스트에서 endpoint 교체용
func NewFirebaseProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*FirebaseProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("firebase API key is required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}

	log.Println("✅ [Auth] Firebase provider initialized")
	return &FirebaseProvider{service: service, now: time.Now}, nil
}

func (p *FirebaseProvider) Name() string {
	return "firebase"
}

// SignIn - verifyPassword
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return Identity{}, err
	}

	resp, err := p.service.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		log.Printf("❌ [Auth] Firebase sign-in failed: %v", err)
		return Identity{}, firebaseError(err)
	}

	log.Printf("✅ [Auth] Firebase sign-in: %s", resp.LocalId)
	return Identity{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt(p.now(), resp.ExpiresIn),
	}, nil
}

// SignUp - signupNewUser 후 토큰이 없으면 verifyPassword로 로그인
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return Identity{}, err
	}

	resp, err := p.service.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		log.Printf("❌ [Auth] Firebase sign-up failed: %v", err)
		return Identity{}, firebaseError(err)
	}

	log.Printf("✅ [Auth] Firebase sign-up: %s", resp.LocalId)
	if resp.IdToken == "" {
		return p.SignIn(ctx, email, password)
	}

	return Identity{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt(p.now(), resp.ExpiresIn),
	}, nil
}

// firebaseError - Identity Toolkit 에러 코드를 auth 에러로 변환
func firebaseError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("firebase request failed: %w", err)
	}

	code := apiErr.Message
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(code, "USER_DISABLED"):
		return ErrInvalidCredentials
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return ErrEmailExists
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return ErrWeakPassword
	case strings.HasPrefix(code, "INVALID_EMAIL"):
		return ErrInvalidEmail
	}
	return fmt.Errorf("firebase request failed: %w", err)
}
