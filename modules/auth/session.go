package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNoProvider - AUTH_PROVIDER=none
var ErrNoProvider = errors.New("sign-in is not configured")

// Session - 현재 로그인 상태 (브라우저 한 프로필의 auth 상태와 같은 단위)
type Session struct {
	provider Provider

	mu      sync.RWMutex
	current *Identity
	now     func() time.Time
}

// NewSession - provider가 nil이면 로그인 불가 세션
func NewSession(provider Provider) *Session {
	return &Session{provider: provider, now: time.Now}
}

// Enabled - 로그인 가능 여부
func (s *Session) Enabled() bool {
	return s.provider != nil
}

func (s *Session) SignUp(ctx context.Context, email, password string) (Identity, error) {
	if s.provider == nil {
		return Identity{}, ErrNoProvider
	}
	identity, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return identity, err
	}
	s.set(identity)
	return identity, nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if s.provider == nil {
		return Identity{}, ErrNoProvider
	}
	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	s.set(identity)
	return identity, nil
}

// SignOut - 현재 identity 제거
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		log.Printf("👋 [Auth] Signed out: %s", s.current.Email)
	}
	s.current = nil
}

// Current - 로그인 상태면 identity 반환 (만료됐으면 false)
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Expired(s.now()) {
		return Identity{}, false
	}
	return *s.current, true
}

// Token - bearer 토큰 (로그아웃/만료 상태면 "")
func (s *Session) Token() string {
	identity, ok := s.Current()
	if !ok {
		return ""
	}
	return identity.IDToken
}

func (s *Session) set(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &identity
}
