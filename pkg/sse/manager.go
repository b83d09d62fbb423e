package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sustainly-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	clientBuffer      = 32
	heartbeatInterval = 15 * time.Second
)

// Event is one message written to a client stream.
type Event struct {
	Name string
	Data any
}

type client struct {
	id       string
	userID   string
	outbound chan Event
}

// Manager fans events out to the SSE streams of each connected user. A user
// may hold several streams (tabs); every stream of that user receives the
// event.
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	stop       chan struct{}
	stopOnce   sync.Once
	heartbeat  time.Duration
	log        *logger.Logger
}

func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		stop:       make(chan struct{}),
		heartbeat:  heartbeatInterval,
		log:        log.With("component", "sse"),
	}
}

// Run owns client registration until Stop is called.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			set, ok := m.clients[c.userID]
			if !ok {
				set = make(map[*client]struct{})
				m.clients[c.userID] = set
			}
			set[c] = struct{}{}
			m.mu.Unlock()
			m.log.Debug("SSE client connected", "clientID", c.id, "userID", c.userID)
		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.userID]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
			m.mu.Unlock()
			m.log.Debug("SSE client disconnected", "clientID", c.id, "userID", c.userID)
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// ClientCount returns the number of open streams for a user.
func (m *Manager) ClientCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// SendToUser queues an event on every stream of the user. Streams whose
// buffer is full drop the event rather than block the sender.
func (m *Manager) SendToUser(userID, event string, data any) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for c := range m.clients[userID] {
		select {
		case c.outbound <- Event{Name: event, Data: data}:
		default:
			m.log.Warn("Dropping SSE event; outbound buffer full", "clientID", c.id, "event", event)
		}
	}
}

// ServeHTTP streams events for userID until the request context ends or the
// manager stops.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	cl := &client{
		id:       uuid.NewString(),
		userID:   userID,
		outbound: make(chan Event, clientBuffer),
	}

	select {
	case m.register <- cl:
	case <-m.stop:
		return
	case <-c.Request.Context().Done():
		return
	}
	defer func() {
		select {
		case m.unregister <- cl:
		case <-m.stop:
		}
	}()

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	w.Flush()

	heartbeat := time.NewTicker(m.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		case ev := <-cl.outbound:
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				m.log.Warn("Failed to marshal SSE event", "event", ev.Name, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
			w.Flush()
		}
	}
}
