package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quel-marketing-studio/modules/common/slot"
)

func newFileStore(t *testing.T) (*Store, slot.Slots) {
	t.Helper()
	slots, err := slot.NewFileSlots(filepath.Join(t.TempDir(), "slots"))
	require.NoError(t, err)
	return NewStore(slots), slots
}

func imageEntry(i int) Entry {
	return Entry{
		Type:             EntryImage,
		ResultData:       fmt.Sprintf("ZGF0YS0%d", i),
		SourceDescriptor: fmt.Sprintf("prompt %d", i),
		Timestamp:        time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestListEmptyWhenNothingAppended(t *testing.T) {
	store, _ := newFileStore(t)

	entries := store.List(context.Background())
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestAppendOrdersMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)

	e1, e2, e3 := imageEntry(1), imageEntry(2), imageEntry(3)
	store.Append(ctx, e1)
	store.Append(ctx, e2)
	store.Append(ctx, e3)

	assert.Equal(t, []Entry{e3, e2, e1}, store.List(ctx))
}

func TestAppendKeepsLastTwentyEntries(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 21, 45} {
		t.Run(fmt.Sprintf("%d appends", n), func(t *testing.T) {
			ctx := context.Background()
			store, _ := newFileStore(t)

			for i := 1; i <= n; i++ {
				store.Append(ctx, imageEntry(i))
			}

			entries := store.List(ctx)
			want := min(n, MaxEntries)
			require.Len(t, entries, want)
			for i, entry := range entries {
				assert.Equal(t, imageEntry(n-i), entry)
			}
		})
	}
}

func TestListTreatsCorruptSlotAsEmpty(t *testing.T) {
	ctx := context.Background()

	for name, stored := range map[string]string{
		"not json":     "{{{",
		"wrong shape":  `{"type":"image"}`,
		"bad time":     `[{"type":"image","resultData":"x","timestamp":"yesterday"}]`,
		"empty string": "",
		"json null":    "null",
	} {
		t.Run(name, func(t *testing.T) {
			store, slots := newFileStore(t)
			require.NoError(t, slots.Set(ctx, HistoryKey, stored))

			entries := store.List(ctx)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)

			// 깨진 상태에서도 Append는 새 목록으로 시작
			store.Append(ctx, imageEntry(1))
			assert.Equal(t, []Entry{imageEntry(1)}, store.List(ctx))
		})
	}
}

func TestListReadsBrowserFormat(t *testing.T) {
	ctx := context.Background()
	store, slots := newFileStore(t)

	require.NoError(t, slots.Set(ctx, HistoryKey,
		`[{"type":"video","resultData":"dmlkZW8=","sourceDescriptor":"cat.png","timestamp":"2025-03-04T05:06:07.890Z"}]`))

	entries := store.List(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, EntryVideo, entries[0].Type)
	assert.Equal(t, "cat.png", entries[0].SourceDescriptor)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 890000000, time.UTC), entries[0].Timestamp)
}

func TestAppendIgnoresInvalidEntries(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)

	store.Append(ctx, Entry{Type: "analysis", ResultData: "x"})
	store.Append(ctx, Entry{Type: EntryImage})

	assert.Empty(t, store.List(ctx))
}

func TestAppendStampsZeroTimestamp(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	fixed := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	store.Append(ctx, Entry{Type: EntryImage, ResultData: "Zm9v", SourceDescriptor: "a red fox"})

	entries := store.List(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].Timestamp)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)

	store.Append(ctx, imageEntry(1))
	store.Clear(ctx)
	assert.Empty(t, store.List(ctx))

	// 빈 상태에서 다시 Clear 해도 문제 없음
	store.Clear(ctx)
	assert.Empty(t, store.List(ctx))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	store.Append(ctx, imageEntry(1))
	store.Append(ctx, imageEntry(2))

	entry, ok := store.Get(ctx, 0)
	require.True(t, ok)
	assert.Equal(t, imageEntry(2), entry)

	_, ok = store.Get(ctx, 2)
	assert.False(t, ok)
	_, ok = store.Get(ctx, -1)
	assert.False(t, ok)
}

func TestConcurrentAppendsKeepBound(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	slots := slot.NewRedisSlots(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { slots.Close() })

	// 같은 슬롯을 공유하는 두 Store (두 프로세스 흉내)
	first, second := NewStore(slots), NewStore(slots)

	var wg sync.WaitGroup
	for i := 1; i <= 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				first.Append(ctx, imageEntry(i))
			} else {
				second.Append(ctx, imageEntry(i))
			}
		}(i)
	}
	wg.Wait()

	entries := first.List(ctx)
	assert.Len(t, entries, MaxEntries)

	seen := map[string]bool{}
	for _, entry := range entries {
		assert.False(t, seen[entry.ResultData], "duplicate %s", entry.ResultData)
		seen[entry.ResultData] = true
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	backends := map[string]func(t *testing.T) slot.Slots{
		"redis": func(t *testing.T) slot.Slots {
			mr := miniredis.RunT(t)
			return slot.NewRedisSlots(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
		},
		"sqlite": func(t *testing.T) slot.Slots {
			s, err := slot.NewSQLiteSlots(filepath.Join(t.TempDir(), "studio.db"), "test")
			require.NoError(t, err)
			return s
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			slots := open(t)
			t.Cleanup(func() { slots.Close() })

			// writer마다 별도 Store: Store mutex가 아니라 backend가 직렬화해야 함
			var wg sync.WaitGroup
			for i := 1; i <= MaxEntries; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					NewStore(slots).Append(ctx, imageEntry(i))
				}(i)
			}
			wg.Wait()

			entries := NewStore(slots).List(ctx)
			require.Len(t, entries, MaxEntries)

			seen := map[string]bool{}
			for _, entry := range entries {
				seen[entry.ResultData] = true
			}
			for i := 1; i <= MaxEntries; i++ {
				assert.True(t, seen[imageEntry(i).ResultData], "append %d lost", i)
			}
		})
	}
}

type failingSlots struct{}

var errSlotsDown = errors.New("slots down")

func (failingSlots) Get(context.Context, string) (string, bool, error) { return "", false, errSlotsDown }
func (failingSlots) Set(context.Context, string, string) error         { return errSlotsDown }
func (failingSlots) Delete(context.Context, string) error              { return errSlotsDown }
func (failingSlots) Close() error                                      { return nil }

func TestPersistenceFailuresDegradeSilently(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingSlots{})

	assert.NotPanics(t, func() {
		store.Append(ctx, imageEntry(1))
		store.Clear(ctx)
	})
	assert.Empty(t, store.List(ctx))
}
