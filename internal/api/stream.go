package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/generator"
	"github.com/mashkdul/Perplexity-mockup/internal/identity"
	"github.com/mashkdul/Perplexity-mockup/internal/metrics"
	"github.com/mashkdul/Perplexity-mockup/internal/sse"
)

const (
	transportSSE       = "sse"
	transportWebSocket = "websocket"
)

// StreamHandler serves campaign plan streams over SSE and WebSocket.
type StreamHandler struct {
	gen            *generator.Generator
	registry       *StreamRegistry
	limiter        *RateLimiter
	allowedOrigins []string
}

// NewStreamHandler creates a stream handler. allowedOrigins are checked against
// the Origin header of WebSocket upgrades; "*" or an empty list accepts any origin.
func NewStreamHandler(gen *generator.Generator, registry *StreamRegistry, limiter *RateLimiter, allowedOrigins []string) *StreamHandler {
	if registry == nil {
		registry = NewStreamRegistry()
	}
	return &StreamHandler{
		gen:            gen,
		registry:       registry,
		limiter:        limiter,
		allowedOrigins: allowedOrigins,
	}
}

// RegisterRoutes registers the stream endpoints.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware)
		r.Get("/stream-campaign", h.HandleStream)
		r.Get("/ws/stream-campaign", h.HandleWebSocket)
	})
}

// Registry returns the registry of live streams.
func (h *StreamHandler) Registry() *StreamRegistry {
	return h.registry
}

// HandleStream streams a campaign plan as server-sent events. The response is
// closed right after the terminal frame.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admit(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, streamID, closeStream := h.openStream(r, transportSSE)
	defer closeStream()

	h.run(ctx, streamID, transportSSE, req, func(c domain.Chunk) error {
		if err := sse.WriteFrame(w, sse.Encode(c)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

// admit applies the rate limit and parses the campaign request. It writes the
// error response itself and reports whether the stream may proceed.
func (h *StreamHandler) admit(w http.ResponseWriter, r *http.Request) (domain.CampaignRequest, bool) {
	ip := identity.IPFromRequest(r)
	if h.limiter != nil && !h.limiter.Allow(ip) {
		metrics.RateLimited.Inc()
		slog.Warn("Stream rate limit exceeded", "ip", ip)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return domain.CampaignRequest{}, false
	}

	req, err := domain.RequestFromQuery(r.URL.Query())
	if err != nil {
		slog.Debug("Rejected campaign request", "error", err, "ip", ip)
		Error(w, http.StatusBadRequest, err.Error())
		return domain.CampaignRequest{}, false
	}
	return req, true
}

// openStream registers a new stream for the client session. The returned
// context is cancelled when the request ends or a newer stream of the same
// session replaces this one.
func (h *StreamHandler) openStream(r *http.Request, transport string) (context.Context, string, func()) {
	sessionID := identity.SessionIDFromContext(r.Context())
	streamID := uuid.NewString()

	ctx, cancel := context.WithCancel(r.Context())
	h.registry.Register(sessionID, streamID, cancel)

	slog.Info("Campaign stream opened",
		"stream_id", streamID,
		"session_id", sessionID,
		"anonymous", identity.IsAnonymous(r.Context()),
		"transport", transport,
	)
	return ctx, streamID, func() {
		h.registry.Unregister(sessionID, streamID)
		cancel()
	}
}

// run drives the generator and hands every chunk to send. It returns the
// outcome recorded in metrics.
func (h *StreamHandler) run(ctx context.Context, streamID, transport string, req domain.CampaignRequest, send func(domain.Chunk) error) string {
	start := time.Now()
	metrics.ActiveStreams.WithLabelValues(transport).Inc()
	defer metrics.ActiveStreams.WithLabelValues(transport).Dec()

	outcome, chunks, err := h.pump(ctx, req, send)

	metrics.StreamsTotal.WithLabelValues(transport, outcome).Inc()
	metrics.StreamDuration.Observe(time.Since(start).Seconds())

	switch outcome {
	case metrics.OutcomeFailed:
		slog.Error("Campaign stream failed", "stream_id", streamID, "chunks", chunks, "error", err)
	case metrics.OutcomeCancelled:
		slog.Info("Campaign stream cancelled", "stream_id", streamID, "chunks", chunks)
	default:
		slog.Info("Campaign stream completed", "stream_id", streamID, "chunks", chunks, "duration", time.Since(start))
	}
	return outcome
}

func (h *StreamHandler) pump(ctx context.Context, req domain.CampaignRequest, send func(domain.Chunk) error) (string, int, error) {
	sent := 0
	for chunk, err := range h.gen.Generate(ctx, req) {
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return metrics.OutcomeCancelled, sent, nil
			}
			return metrics.OutcomeFailed, sent, err
		}
		if err := send(chunk); err != nil {
			if ctx.Err() != nil {
				return metrics.OutcomeCancelled, sent, nil
			}
			return metrics.OutcomeFailed, sent, fmt.Errorf("send chunk %d: %w", chunk.Sequence, err)
		}
		sent++
		if chunk.IsEnd() {
			return metrics.OutcomeCompleted, sent, nil
		}
	}
	return metrics.OutcomeCancelled, sent, nil
}
