package slot

import (
	"context"
	"fmt"

	"quel-marketing-studio/modules/common/config"
	redisClient "quel-marketing-studio/modules/common/redis"
)

// NewFromConfig - SLOT_BACKEND 설정에 맞는 슬롯 저장소 생성
func NewFromConfig(cfg *config.Config) (Slots, error) {
	switch cfg.SlotBackend {
	case "file":
		return NewFileSlots(cfg.SlotDir)
	case "sqlite":
		return NewSQLiteSlots(cfg.SQLitePath, cfg.SlotNamespace)
	case "redis":
		rdb, err := redisClient.Connect(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("redis slot backend unavailable: %w", err)
		}
		return NewRedisSlots(rdb, cfg.SlotNamespace), nil
	case "supabase":
		return NewSupabaseSlots(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseSlotTable, cfg.SlotNamespace)
	default:
		return nil, fmt.Errorf("unsupported slot backend: %s", cfg.SlotBackend)
	}
}
