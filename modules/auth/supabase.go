package auth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// SupabaseProvider - Supabase Auth (GoTrue) 이메일/비밀번호 로그인
type SupabaseProvider struct {
	auth gotrue.Client
	now  func() time.Time
}

// NewSupabaseProvider - Supabase 클라이언트의 Auth 사용
func NewSupabaseProvider(url, key string) (*SupabaseProvider, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Println("✅ [Auth] Supabase provider initialized")
	return newSupabaseProvider(client.Auth), nil
}

func newSupabaseProvider(auth gotrue.Client) *SupabaseProvider {
	return &SupabaseProvider{auth: auth, now: time.Now}
}

func (p *SupabaseProvider) Name() string {
	return "supabase"
}

// SignIn - POST /token?grant_type=password
// gotrue 클라이언트는 ctx를 받지 않으므로 호출 전에만 취소 확인
func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return Identity{}, err
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	resp, err := p.auth.SignInWithEmailPassword(strings.TrimSpace(email), password)
	if err != nil {
		log.Printf("❌ [Auth] Supabase sign-in failed: %v", err)
		return Identity{}, supabaseError(err)
	}

	identity := p.identityFromSession(resp.Session)
	log.Printf("✅ [Auth] Supabase sign-in: %s", identity.UserID)
	return identity, nil
}

// SignUp - POST /signup
// 이메일 확인이 켜져 있으면 세션 없이 사용자만 돌아오고 ErrConfirmationPending
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return Identity{}, err
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	resp, err := p.auth.Signup(types.SignupRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		log.Printf("❌ [Auth] Supabase sign-up failed: %v", err)
		return Identity{}, supabaseError(err)
	}

	if resp.Session.AccessToken == "" {
		log.Printf("⚠️ [Auth] Supabase sign-up pending confirmation: %s", resp.User.Email)
		return Identity{UserID: userID(resp.User.ID), Email: resp.User.Email}, ErrConfirmationPending
	}

	identity := p.identityFromSession(resp.Session)
	log.Printf("✅ [Auth] Supabase sign-up: %s", identity.UserID)
	return identity, nil
}

func (p *SupabaseProvider) identityFromSession(session types.Session) Identity {
	expires := expiresAt(p.now(), int64(session.ExpiresIn))
	if session.ExpiresAt > 0 {
		expires = time.Unix(session.ExpiresAt, 0)
	}
	return Identity{
		UserID:       userID(session.User.ID),
		Email:        session.User.Email,
		IDToken:      session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    expires,
	}
}

func userID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// supabaseError - gotrue는 "response status code N: body" 형태의 에러만 돌려줌
func supabaseError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "user_already_exists"):
		return ErrEmailExists
	case strings.Contains(msg, "weak_password"):
		return ErrWeakPassword
	case strings.Contains(msg, "invalid_credentials"),
		strings.Contains(msg, "Invalid login credentials"),
		strings.Contains(msg, "status code 400"):
		return ErrInvalidCredentials
	}
	return fmt.Errorf("supabase auth request failed: %w", err)
}
