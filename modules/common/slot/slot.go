// Package slot provides named string slots, the persistence primitive behind
// the generation history and the theme preference.
package slot

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"time"
)

// Slots - 이름 붙은 문자열 슬롯 저장소 (브라우저 localStorage와 같은 역할)
type Slots interface {
	// Get returns the stored value; found is false when the slot was never written or was deleted.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// UpdateFunc receives the current value of a slot and returns the value to store.
type UpdateFunc func(current string, found bool) (string, error)

// Updater is implemented by backends that can run a read-modify-write on one
// slot atomically with respect to other writers of the same store.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// ErrInvalidKey is returned for keys that are empty or contain characters
// outside [A-Za-z0-9_.-].
var ErrInvalidKey = errors.New("invalid slot key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// Update runs fn against slots atomically when the backend supports it,
// otherwise as a plain Get followed by Set.
func Update(ctx context.Context, slots Slots, key string, fn UpdateFunc) error {
	if u, ok := slots.(Updater); ok {
		return u.Update(ctx, key, fn)
	}

	current, found, err := slots.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	return slots.Set(ctx, key, next)
}

// 충돌 재시도 대기 범위
const (
	retryBaseDelay = 2 * time.Millisecond
	retryMaxDelay  = 100 * time.Millisecond
)

// waitRetry - attempt번째 충돌 후 jitter를 준 지수 backoff
// ctx가 끝나면 ctx 에러를 반환하고, 그 전에는 포기하지 않는다
func waitRetry(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << min(attempt, 6)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
