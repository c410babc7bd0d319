package slot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Update lock 만료 시간 (lock을 쥔 프로세스가 죽어도 다른 writer가 진행)
const lockTTL = 5 * time.Second

// 자기 token일 때만 lock 해제
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlots - "<namespace>:<key>" 문자열 키로 슬롯 저장
type RedisSlots struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisSlots - 이미 연결된 Redis 클라이언트로 생성
func NewRedisSlots(rdb *redis.Client, namespace string) *RedisSlots {
	log.Printf("✅ [Slot:redis] Using namespace: %s", namespace)
	return &RedisSlots{rdb: rdb, namespace: namespace}
}

func (s *RedisSlots) redisKey(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisSlots) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	value, err := s.rdb.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s failed: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisSlots) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s failed: %w", key, err)
	}
	return nil
}

func (s *RedisSlots) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL %s failed: %w", key, err)
	}
	return nil
}

// Update - "<key>:lock" SET NX PX lock을 잡고 read-modify-write
// lock이 만료된 뒤의 늦은 쓰기는 WATCH가 막고 다시 시도한다
// ctx가 끝날 때까지 포기하지 않음
func (s *RedisSlots) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey(key); err != nil {
		return err
	}
	rkey := s.redisKey(key)
	lockKey := rkey + ":lock"
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		acquired, err := s.rdb.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("redis lock %s failed: %w", key, err)
		}
		if acquired {
			break
		}
		if err := waitRetry(ctx, attempt); err != nil {
			return fmt.Errorf("redis update %s: waiting for lock: %w", key, err)
		}
	}
	defer s.unlock(ctx, lockKey, token)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, rkey).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = "", false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; ; attempt++ {
		err := s.rdb.Watch(ctx, txf, rkey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("redis update %s failed: %w", key, err)
		}
		log.Printf("   🔄 [Slot:redis] %s changed while locked, retry %d", key, attempt+1)
		if err := waitRetry(ctx, attempt); err != nil {
			return fmt.Errorf("redis update %s: %w", key, err)
		}
	}
}

// unlock - 호출자 ctx가 취소돼도 lock은 해제
func (s *RedisSlots) unlock(ctx context.Context, lockKey, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := releaseLock.Run(releaseCtx, s.rdb, []string{lockKey}, token).Err(); err != nil {
		log.Printf("⚠️ [Slot:redis] Failed to release %s: %v", lockKey, err)
	}
}

func (s *RedisSlots) Close() error {
	return s.rdb.Close()
}
