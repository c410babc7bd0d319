package studio

import (
	"log"
	"net/http"
	"strings"
	"sync"
)

// BusyGuard - control 하나당 진행 중인 요청 하나
type BusyGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
	hub      *EventHub
}

func NewBusyGuard(hub *EventHub) *BusyGuard {
	return &BusyGuard{inFlight: make(map[string]bool), hub: hub}
}

// TryAcquire - 이미 진행 중이면 ok=false
// release는 반드시 한 번 호출 (defer)
func (g *BusyGuard) TryAcquire(control string) (release func(), ok bool) {
	g.mu.Lock()
	if g.inFlight[control] {
		g.mu.Unlock()
		return func() {}, false
	}
	g.inFlight[control] = true
	g.mu.Unlock()

	g.notify(control, true)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, control)
			g.mu.Unlock()
			g.notify(control, false)
		})
	}, true
}

// Busy - control이 진행 중인지
func (g *BusyGuard) Busy(control string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[control]
}

func (g *BusyGuard) notify(control string, busy bool) {
	if g.hub != nil {
		g.hub.Broadcast(Event{Type: "busy", Control: control, Busy: busy})
	}
}

// controlOf - X-Control-Id 헤더가 있으면 그 값, 없으면 route 이름
func controlOf(r *http.Request, route string) string {
	if id := strings.TrimSpace(r.Header.Get("X-Control-Id")); id != "" {
		return id
	}
	return route
}

// withBusy - busy 동안 같은 control의 두 번째 요청은 409
func (h *Handler) withBusy(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		control := controlOf(r, route)
		release, ok := h.busy.TryAcquire(control)
		if !ok {
			log.Printf("⚠️ [Studio] %s already in progress", control)
			writeError(w, http.StatusConflict, "Busy", "Request already in progress")
			return
		}
		defer release()

		next(w, r)
	}
}
