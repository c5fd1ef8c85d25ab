// Package transport opens campaign streams from the client side. Both
// transports yield the same chunk sequence: partial chunks with client-assigned
// sequence numbers followed by one end chunk.
package transport

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/mashkdul/Perplexity-mockup/internal/config"
	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

const (
	streamPath   = "/stream-campaign"
	wsStreamPath = "/ws/stream-campaign"

	// Large enough for any plan document the server sends.
	maxPayloadSize = 1 << 20
)

// Transport opens a campaign stream. Cancelling ctx closes the connection;
// the sequence then yields ctx.Err(). Every other failure is reported as an
// error wrapping domain.ErrTransport.
type Transport interface {
	Open(ctx context.Context, req domain.CampaignRequest) iter.Seq2[domain.Chunk, error]
}

// New returns the transport for kind ("sse" or "websocket").
func New(kind, baseURL, sessionID string) (Transport, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	switch kind {
	case "", config.TransportSSE:
		return NewSSEClient(baseURL, sessionID, nil), nil
	case config.TransportWebSocket:
		return NewWSClient(baseURL, sessionID), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func transportErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrTransport, fmt.Sprintf(format, args...))
}

func wrapTransport(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
}

func defaultHTTPClient() *http.Client {
	// No overall timeout: streams are long-lived and bounded by ctx.
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConnsPerHost:   2,
		},
	}
}
