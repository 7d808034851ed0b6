package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"katapass/internal/domain"
	"katapass/internal/usecase/katapass"
)

const (
	subscriberBuffer = 16
	writeWait        = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MonitorHandler serves broker stats and streams intercept decisions to
// websocket subscribers.
type MonitorHandler struct {
	log   *zap.SugaredLogger
	stats *katapass.Stats

	mu          sync.Mutex
	subscribers map[chan domain.Decision]struct{}
}

func NewMonitorHandler(log *zap.SugaredLogger, stats *katapass.Stats) *MonitorHandler {
	return &MonitorHandler{
		log:         log,
		stats:       stats,
		subscribers: make(map[chan domain.Decision]struct{}),
	}
}

func (m *MonitorHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/status", m.HandleStatus)
	r.Get("/decisions", m.HandleDecisions)
	return r
}

// Serve listens on addr until ctx ends.
func (m *MonitorHandler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.log.Infof("Monitor is running on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Publish fans a decision out to subscribers. Slow subscribers miss decisions.
func (m *MonitorHandler) Publish(d domain.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- d:
		default:
			m.log.Debugw("monitor subscriber too slow, decision dropped", "id", d.ID)
		}
	}
}

func (m *MonitorHandler) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

func (m *MonitorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(m.log, w, http.StatusOK, m.stats.Snapshot())
}

func (m *MonitorHandler) HandleDecisions(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan domain.Decision, subscriberBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.subscribers, ch)
		m.mu.Unlock()
	}()

	// Subscribers never send; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case d := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(d); err != nil {
				m.log.Debugw("monitor subscriber write failed", "error", err)
				return
			}
		}
	}
}

func writeJSON(log *zap.SugaredLogger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("writeJSON encode error: %v", err)
	}
}
