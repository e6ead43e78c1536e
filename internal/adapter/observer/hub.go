package observer

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tileworld/internal/app/ports"
)

// Frame is what observers receive once per tick.
type Frame struct {
	Type    string            `json:"type"`
	Summary ports.TickSummary `json:"summary"`
}

// SubscribeMsg narrows a session to some agents; an empty list means all.
type SubscribeMsg struct {
	Type   string `json:"type"`
	Agents []int  `json:"agents"`
}

type session struct {
	out    chan []byte
	filter atomic.Pointer[map[int]bool]
}

// Hub fans tick summaries out to websocket observers. Slow observers miss
// frames rather than slow the tick.
type Hub struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[uint64]*session
	nextID   atomic.Uint64
	dropped  atomic.Uint64
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: map[uint64]*session{},
	}
}

func (h *Hub) Publish(_ context.Context, s ports.TickSummary) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var all []byte
	for _, sess := range h.sessions {
		var b []byte
		if f := sess.filter.Load(); f != nil && len(*f) > 0 {
			var err error
			if b, err = json.Marshal(Frame{Type: "TICK", Summary: onlyAgents(s, *f)}); err != nil {
				return err
			}
		} else {
			if all == nil {
				var err error
				if all, err = json.Marshal(Frame{Type: "TICK", Summary: s}); err != nil {
					return err
				}
			}
			b = all
		}
		select {
		case sess.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id := h.nextID.Add(1)
		sess := &session{out: make(chan []byte, 16)}
		h.mu.Lock()
		h.sessions[id] = sess
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.sessions, id)
			h.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" {
				continue
			}
			filter := make(map[int]bool, len(sub.Agents))
			for _, a := range sub.Agents {
				filter[a] = true
			}
			sess.filter.Store(&filter)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
			h.log.Printf("observer %d: writer did not stop", id)
		}
	}
}

func onlyAgents(s ports.TickSummary, keep map[int]bool) ports.TickSummary {
	rows := make([]ports.AgentTick, 0, len(keep))
	for _, row := range s.Agents {
		if keep[row.AgentID] {
			rows = append(rows, row)
		}
	}
	s.Agents = rows
	return s
}
