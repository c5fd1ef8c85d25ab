package api

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/identity"
	"github.com/mashkdul/Perplexity-mockup/internal/metrics"
	"github.com/mashkdul/Perplexity-mockup/internal/sse"
)

// HandleWebSocket streams a campaign plan over a WebSocket. Each frame payload
// is sent as one text message and the connection is closed normally after the
// terminal payload.
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		Error(w, http.StatusForbidden, "origin not allowed")
		return
	}

	req, ok := h.admit(w, r)
	if !ok {
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", identity.IPFromRequest(r))
		return
	}
	defer func() {
		if closeErr := ws.CloseNow(); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, streamID, closeStream := h.openStream(r, transportWebSocket)
	defer closeStream()

	// The client never sends data; CloseRead cancels ctx once the peer goes away.
	ctx = ws.CloseRead(ctx)

	outcome := h.run(ctx, streamID, transportWebSocket, req, func(c domain.Chunk) error {
		return ws.Write(ctx, websocket.MessageText, []byte(sse.Encode(c)))
	})

	switch outcome {
	case metrics.OutcomeCompleted:
		if err := ws.Close(websocket.StatusNormalClosure, "stream complete"); err != nil {
			slog.Debug("Failed to close websocket", "stream_id", streamID, "error", err)
		}
	case metrics.OutcomeCancelled:
		if err := ws.Close(websocket.StatusGoingAway, "stream cancelled"); err != nil {
			slog.Debug("Failed to close websocket", "stream_id", streamID, "error", err)
		}
	default:
		if err := ws.Close(websocket.StatusInternalError, "stream failed"); err != nil {
			slog.Debug("Failed to close websocket", "stream_id", streamID, "error", err)
		}
	}
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}
