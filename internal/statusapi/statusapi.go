// Package statusapi implements the optional read-only status/SSE dashboard
// endpoint (Supplemented Feature S2). It is a pure observer: it has no
// ability to start, stop, or alter a run, only to report what a caller
// feeds it via Emit. Grounded on pkg/monitor/monitor.go's HTTPMonitor
// (subscriber fanout, bounded history, SSE handler), rebuilt on
// go-chi/chi routing plus go-chi/cors, since a local dashboard page is
// typically served from a different origin during development.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// EventType categorizes a status-endpoint event.
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventPhaseStarted   EventType = "phase_started"
	EventPhaseCompleted EventType = "phase_completed"
	EventTaskCompleted  EventType = "task_completed"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
)

// Event is one status-endpoint event, broadcast to every SSE subscriber and
// retained in the bounded history buffer.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: make(map[string]any)}
}

// WithData attaches a key/value pair and returns the same event.
func (e Event) WithData(key string, value any) Event {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Server serves /status, /history, and /events (SSE) for a running or
// completed pipeline. It never drives the pipeline itself — Emit is the
// only write path, called by whatever owns the engine.Engine instance.
type Server struct {
	mu sync.RWMutex

	addr   string
	server *http.Server

	subscribers map[chan Event]bool
	history     []Event
	maxHistory  int
	running     bool
}

// NewServer creates a status server bound to addr (e.g. "127.0.0.1:4455").
func NewServer(addr string) *Server {
	return &Server{addr: addr, subscribers: make(map[chan Event]bool), maxHistory: 1000}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	r.Get("/events", s.handleEvents)
	return r
}

// Start begins serving in the background. A second call is a no-op.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.server = &http.Server{Addr: s.addr, Handler: s.router()}
	s.mu.Unlock()

	go func() {
		_ = s.server.ListenAndServe()
	}()
	return nil
}

// Stop closes every subscriber channel and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Emit records event in history and delivers it to every subscriber,
// dropping it for any subscriber whose buffer is full rather than blocking.
func (s *Server) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, event)
	if len(s.history) > s.maxHistory {
		s.history = s.history[1:]
	}
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Server) subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 100)
	s.subscribers[ch] = true
	return ch
}

func (s *Server) unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		close(ch)
		delete(s.subscribers, ch)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := map[string]any{
		"running":     s.running,
		"subscribers": len(s.subscribers),
		"events":      len(s.history),
	}
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	history := make([]Event, len(s.history))
	copy(history, s.history)
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(history)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(data)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
