package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
)

const (
	// streamBuffer is the number of frames queued per subscriber before
	// frames for that subscriber are dropped.
	streamBuffer = 32

	streamWriteTimeout = 5 * time.Second
)

type subscriber struct {
	id     int64
	frames chan []byte
}

// StreamHub fans task events out to websocket subscribers. It implements
// events.EventHandler. Delivery is best effort: a subscriber that falls
// behind loses frames rather than slowing writers down.
type StreamHub struct {
	mu             sync.RWMutex
	subs           map[int64]*subscriber
	nextID         atomic.Int64
	originPatterns []string
	logger         *slog.Logger
}

// NewStreamHub creates a hub. allowedOrigins are full origins such as
// "http://localhost:5173"; requests without an Origin header are accepted.
func NewStreamHub(allowedOrigins []string, logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{
		subs:           make(map[int64]*subscriber),
		originPatterns: originHosts(allowedOrigins),
		logger:         logger.With(slog.String("component", "stream_hub")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *StreamHub) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode task event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		select {
		case sub.frames <- frame:
		default:
			logger.FromContextOrDefault(ctx, h.logger).Warn("dropping event for slow subscriber",
				slog.Int64("subscriber_id", sub.id),
				slog.String("event_type", string(event.Type)))
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *StreamHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeHTTP handles GET /tasks/stream. Subscribers only receive; inbound
// messages are discarded.
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Debug("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe()
	defer h.unsubscribe(sub)
	log.Debug("stream subscriber connected", slog.Int64("subscriber_id", sub.id))

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			log.Debug("stream subscriber disconnected", slog.Int64("subscriber_id", sub.id))
			return
		case frame := <-sub.frames:
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				log.Debug("stream write failed",
					slog.Int64("subscriber_id", sub.id),
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *StreamHub) subscribe() *subscriber {
	sub := &subscriber{
		id:     h.nextID.Add(1),
		frames: make(chan []byte, streamBuffer),
	}
	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

func (h *StreamHub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
}

// originHosts converts origins to the host patterns websocket.Accept matches.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
