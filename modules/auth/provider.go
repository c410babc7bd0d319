// Package auth wraps the external email/password identity providers the
// studio signs users in with and keeps the current session's bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quel-marketing-studio/modules/common/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("a valid email is required")
	// ErrConfirmationPending - 가입은 됐지만 이메일 확인 전이라 토큰이 없음
	ErrConfirmationPending = errors.New("sign-up succeeded, confirm your email before signing in")
)

// 외부 provider와 같은 최소 길이
const minPasswordLength = 6

// Identity - 로그인 결과
type Identity struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired - 만료 시각이 지났는지 (ExpiresAt이 없으면 만료 안 됨)
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Provider - 이메일/비밀번호 인증 provider
type Provider interface {
	Name() string
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// NewProviderFromConfig - AUTH_PROVIDER 설정에 맞는 provider 생성
// "none"이면 nil, nil
func NewProviderFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.AuthProvider {
	case "firebase":
		provider, err := NewFirebaseProvider(ctx, cfg.FirebaseAPIKey)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "supabase":
		provider, err := NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "none":
		log.Println("⚠️ [Auth] AUTH_PROVIDER=none, sign-in disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", cfg.AuthProvider)
	}
}

// validateCredentials - provider 호출 전 입력 확인
func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// expiresAt - "만료까지 초" 값을 시각으로 변환
func expiresAt(now time.Time, seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(seconds) * time.Second)
}
