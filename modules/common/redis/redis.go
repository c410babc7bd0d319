package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"quel-marketing-studio/modules/common/config"
)

// 연결 확인 타임아웃
const pingTimeout = 10 * time.Second

// Options - 설정값으로 go-redis 옵션 구성
func Options(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if cfg.RedisUseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Connect - 슬롯 저장소용 Redis 연결, ping 실패 시 에러
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	log.Printf("🔌 [Redis] Connecting to %s (tls: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)

	rdb := redis.NewClient(Options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", cfg.GetRedisAddr(), err)
	}

	log.Println("✅ [Redis] Connected")
	return rdb, nil
}
