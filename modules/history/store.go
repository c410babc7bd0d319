// Package history keeps the bounded, most-recent-first log of completed
// image and video generations plus the theme preference, both persisted
// through named slots.
package history

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"quel-marketing-studio/modules/common/slot"
)

// Store - 생성 히스토리 저장소
//
// 저장소 실패는 호출자에게 전달하지 않는다. Append/Clear는 no-op,
// List는 빈 목록이 되고 로그로만 남는다.
type Store struct {
	slots slot.Slots
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore - 슬롯 저장소 위에 히스토리 생성
func NewStore(slots slot.Slots) *Store {
	return &Store{
		slots: slots,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Append - 맨 앞에 추가하고 MaxEntries 초과분은 뒤에서 제거
func (s *Store) Append(ctx context.Context, entry Entry) {
	if !entry.Valid() {
		log.Printf("⚠️ [History] Ignoring entry (type=%q, data=%d bytes)", entry.Type, len(entry.ResultData))
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	err := slot.Update(ctx, s.slots, HistoryKey, func(current string, found bool) (string, error) {
		entries := decodeEntries(current, found)

		entries = append([]Entry{entry}, entries...)
		if len(entries) > MaxEntries {
			entries = entries[:MaxEntries]
		}
		count = len(entries)

		data, err := json.Marshal(entries)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	if err != nil {
		log.Printf("⚠️ [History] Failed to save %s entry, dropped: %v", entry.Type, err)
		return
	}

	log.Printf("💾 [History] Saved %s entry (%d/%d)", entry.Type, count, MaxEntries)
}

// List - 최신순 목록 (최대 MaxEntries)
func (s *Store) List(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.slots.Get(ctx, HistoryKey)
	if err != nil {
		log.Printf("⚠️ [History] Failed to read history, returning empty: %v", err)
		return []Entry{}
	}

	entries := decodeEntries(current, found)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

// Get - index번째 항목 (0 = 최신)
func (s *Store) Get(ctx context.Context, index int) (Entry, bool) {
	entries := s.List(ctx)
	if index < 0 || index >= len(entries) {
		return Entry{}, false
	}
	return entries[index], true
}

// Clear - 전체 삭제
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slots.Delete(ctx, HistoryKey); err != nil {
		log.Printf("⚠️ [History] Failed to clear history: %v", err)
		return
	}
	log.Println("🗑️ [History] Cleared")
}

// decodeEntries - 슬롯 내용 해석, 없거나 깨졌으면 빈 목록
func decodeEntries(current string, found bool) []Entry {
	if !found || current == "" {
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(current), &entries); err != nil {
		log.Printf("⚠️ [History] Stored history is corrupt, treating as empty: %v", err)
		return []Entry{}
	}
	if entries == nil {
		return []Entry{}
	}
	return entries
}
