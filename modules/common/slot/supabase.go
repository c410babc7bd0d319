package slot

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/supabase-community/supabase-go"
)

// SupabaseSlots - Supabase 테이블에 슬롯 저장
//
// 필요한 테이블:
//
//	create table studio_slots (
//	  namespace text not null,
//	  slot_key text not null,
//	  slot_value text not null,
//	  version bigint not null default 1,
//	  primary key (namespace, slot_key)
//	);
//
// 모든 쓰기는 version 비교 후 갱신 (compare-and-swap)
type SupabaseSlots struct {
	supabase  *supabase.Client
	table     string
	namespace string
}

type supabaseSlotRow struct {
	Namespace string `json:"namespace"`
	SlotKey   string `json:"slot_key"`
	SlotValue string `json:"slot_value"`
	Version   int64  `json:"version"`
}

// NewSupabaseSlots - Supabase 클라이언트 생성
func NewSupabaseSlots(url, serviceKey, table, namespace string) (*SupabaseSlots, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Printf("✅ [Slot:supabase] Using table: %s (namespace: %s)", table, namespace)
	return &SupabaseSlots{
		supabase:  client,
		table:     table,
		namespace: namespace,
	}, nil
}

func (s *SupabaseSlots) row(key string) (*supabaseSlotRow, error) {
	var rows []supabaseSlotRow
	_, err := s.supabase.From(s.table).
		Select("namespace,slot_key,slot_value,version", "", false).
		Eq("namespace", s.namespace).
		Eq("slot_key", key).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SupabaseSlots) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	row, err := s.row(key)
	if err != nil || row == nil {
		return "", false, err
	}
	return row.SlotValue, true, nil
}

// Set - 현재 version 위에 덮어쓰기 (Update와 같은 경로)
func (s *SupabaseSlots) Set(ctx context.Context, key, value string) error {
	return s.Update(ctx, key, func(string, bool) (string, error) {
		return value, nil
	})
}

func (s *SupabaseSlots) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, _, err := s.supabase.From(s.table).
		Delete("minimal", "").
		Eq("namespace", s.namespace).
		Eq("slot_key", key).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// Update - 읽은 version과 같을 때만 갱신, 아니면 다시 읽고 재시도
// 행이 없으면 insert, 동시에 다른 writer가 먼저 만들었으면 재시도
func (s *SupabaseSlots) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey(key); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("supabase update %s: %w", key, err)
		}

		current, err := s.row(key)
		if err != nil {
			return err
		}

		var value string
		if current != nil {
			value = current.SlotValue
		}
		next, err := fn(value, current != nil)
		if err != nil {
			return err
		}

		var swapped bool
		if current == nil {
			swapped, err = s.insert(key, next)
		} else {
			swapped, err = s.swap(key, current.Version, next)
		}
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}

		log.Printf("   🔄 [Slot:supabase] %s changed concurrently, retry %d", key, attempt+1)
		if err := waitRetry(ctx, attempt); err != nil {
			return fmt.Errorf("supabase update %s: %w", key, err)
		}
	}
}

// insert - 첫 쓰기, 다른 writer가 먼저 만들었으면 false
func (s *SupabaseSlots) insert(key, value string) (bool, error) {
	row := supabaseSlotRow{
		Namespace: s.namespace,
		SlotKey:   key,
		SlotValue: value,
		Version:   1,
	}
	_, _, err := s.supabase.From(s.table).
		Insert(row, false, "", "minimal", "").
		Execute()
	if err == nil {
		return true, nil
	}

	// primary key 충돌이면 행이 생겨 있음
	existing, lookupErr := s.row(key)
	if lookupErr == nil && existing != nil {
		return false, nil
	}
	return false, fmt.Errorf("failed to insert slot %s: %w", key, err)
}

// swap - version이 그대로일 때만 값 교체, 바뀌었으면 false
func (s *SupabaseSlots) swap(key string, version int64, value string) (bool, error) {
	var updated []supabaseSlotRow
	_, err := s.supabase.From(s.table).
		Update(map[string]interface{}{
			"slot_value": value,
			"version":    version + 1,
		}, "representation", "").
		Eq("namespace", s.namespace).
		Eq("slot_key", key).
		Eq("version", strconv.FormatInt(version, 10)).
		ExecuteTo(&updated)
	if err != nil {
		return false, fmt.Errorf("failed to update slot %s: %w", key, err)
	}
	return len(updated) > 0, nil
}

func (s *SupabaseSlots) Close() error {
	return nil
}
