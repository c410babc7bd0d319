package studio

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quel-marketing-studio/modules/generation"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// origin은 router의 originPolicy가 이미 검사함
		return true
	},
}

// Event - 페이지로 보내는 상태 이벤트
//
//	{type:"busy", control, busy}
//	{type:"generation", requestId, kind, state:"start"|"finish", error, failure}
type Event struct {
	Type      string `json:"type"`
	Control   string `json:"control,omitempty"`
	Busy      bool   `json:"busy"`
	RequestID string `json:"requestId,omitempty"`
	Kind      string `json:"kind,omitempty"`
	State     string `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
	Failure   string `json:"failure,omitempty"` // 실패 분류 (BackendError 등)
}

// 연결된 페이지
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Metrics - 서버 메트릭
type Metrics struct {
	TotalConnections   int       `json:"totalConnections"`
	CurrentConnections int       `json:"currentConnections"`
	Generations        int       `json:"generations"`
	FailedGenerations  int       `json:"failedGenerations"`
	StartTime          time.Time `json:"startTime"`
}

// EventHub - 연결된 모든 페이지에 이벤트 브로드캐스트
// generation.Observer 구현
type EventHub struct {
	clients map[*wsClient]bool
	mutex   sync.RWMutex

	metrics      Metrics
	metricsMutex sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*wsClient]bool),
		metrics: Metrics{StartTime: time.Now()},
	}
}

// HandleWebSocket - GET /ws
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Studio] WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.addClient(client)

	go client.writePump()
	go client.readPump(h)
}

func (h *EventHub) addClient(client *wsClient) {
	h.mutex.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mutex.Unlock()

	h.metricsMutex.Lock()
	h.metrics.TotalConnections++
	h.metricsMutex.Unlock()

	log.Printf("👤 [Studio] Page connected (clients: %d)", count)
}

func (h *EventHub) removeClient(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.clients[client]; exists {
		close(client.send)
		delete(h.clients, client)
		log.Printf("👋 [Studio] Page disconnected (remaining: %d)", len(h.clients))
	}
}

// Broadcast - 모든 페이지에 전송, 밀린 클라이언트는 끊음
func (h *EventHub) Broadcast(event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [Studio] Error marshaling event: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// OnStart - generation.Observer
func (h *EventHub) OnStart(requestID string, kind generation.Kind) {
	h.Broadcast(Event{Type: "generation", RequestID: requestID, Kind: string(kind), State: "start"})
}

// OnFinish - generation.Observer
func (h *EventHub) OnFinish(requestID string, kind generation.Kind, err error) {
	event := Event{Type: "generation", RequestID: requestID, Kind: string(kind), State: "finish"}

	h.metricsMutex.Lock()
	h.metrics.Generations++
	if err != nil {
		h.metrics.FailedGenerations++
		event.Error = err.Error()
		event.Failure = string(generation.KindOf(err))
	}
	h.metricsMutex.Unlock()

	h.Broadcast(event)
}

// Snapshot - 현재 메트릭
func (h *EventHub) Snapshot() Metrics {
	h.metricsMutex.RLock()
	metrics := h.metrics
	h.metricsMutex.RUnlock()

	h.mutex.RLock()
	metrics.CurrentConnections = len(h.clients)
	h.mutex.RUnlock()
	return metrics
}

// 페이지에서 오는 메시지는 사용하지 않음, 연결 종료 감지용
func (c *wsClient) readPump(hub *EventHub) {
	defer func() {
		hub.removeClient(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ [Studio] WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("⚠️ [Studio] WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
