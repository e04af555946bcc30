// Package hub streams change notifications to HTTP clients as server-sent
// events.
package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursebook/internal/notify"
)

// DefaultKeepAlive is the interval between keep-alive comments
const DefaultKeepAlive = 30 * time.Second

// Client represents a connected SSE client
type Client struct {
	ID          string
	URI         string
	Descendants bool
	Connected   time.Time
}

// Hub manages SSE client connections. Each client holds one subscription
// on the resolver for as long as its request is open.
type Hub struct {
	resolver   *notify.Resolver
	log        *zap.Logger
	defaultURI string
	keepAlive  time.Duration

	mu      sync.RWMutex
	clients map[string]Client
}

// Option configures a Hub
type Option func(*Hub)

// WithKeepAlive sets the keep-alive interval
func WithKeepAlive(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// New creates a hub that subscribes on resolver. Requests without a uri
// parameter watch defaultURI.
func New(resolver *notify.Resolver, defaultURI string, log *zap.Logger, opts ...Option) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		resolver:   resolver,
		log:        log,
		defaultURI: defaultURI,
		keepAlive:  DefaultKeepAlive,
		clients:    make(map[string]Client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Clients returns a snapshot of the connected clients
func (h *Hub) Clients() []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// ServeHTTP streams changes for the "uri" query parameter. "descendants"
// defaults to true.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		uri = h.defaultURI
	}

	descendants := true
	if v := r.URL.Query().Get("descendants"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "descendants must be a boolean", http.StatusBadRequest)
			return
		}
		descendants = b
	}

	h.Stream(w, r, uri, descendants)
}

// Stream subscribes to uri and writes each change as a "change" event until
// the request context ends
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, uri string, descendants bool) {
	// Check if client supports SSE
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sub := h.resolver.Subscribe(uri, descendants)
	client := h.register(uri, descendants)
	defer func() {
		sub.Close()
		h.unregister(client)
	}()

	if _, err := fmt.Fprintf(w, ": connected %s\n\n", client.ID); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeChange(w, change); err != nil {
				h.log.Debug("SSE write failed", zap.String("client", client.ID), zap.Error(err))
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (h *Hub) register(uri string, descendants bool) Client {
	client := Client{
		ID:          uuid.NewString(),
		URI:         uri,
		Descendants: descendants,
		Connected:   time.Now(),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("SSE client connected",
		zap.String("client", client.ID),
		zap.String("uri", uri),
		zap.Int("total", total))
	return client
}

func (h *Hub) unregister(client Client) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("SSE client disconnected",
		zap.String("client", client.ID),
		zap.Duration("connected_for", time.Since(client.Connected)),
		zap.Int("total", total))
}

func writeChange(w http.ResponseWriter, change notify.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
	return err
}
