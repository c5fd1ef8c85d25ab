package transport

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/identity"
	"github.com/mashkdul/Perplexity-mockup/internal/sse"
)

// WSClient reads campaign streams from the WebSocket endpoint.
type WSClient struct {
	baseURL   string
	sessionID string
}

// NewWSClient creates a WebSocket transport. baseURL may use the http(s) or
// ws(s) scheme.
func NewWSClient(baseURL, sessionID string) *WSClient {
	return &WSClient{baseURL: baseURL, sessionID: sessionID}
}

// Open implements Transport.
func (c *WSClient) Open(ctx context.Context, req domain.CampaignRequest) iter.Seq2[domain.Chunk, error] {
	req = req.Clone()
	return func(yield func(domain.Chunk, error) bool) {
		opts := &websocket.DialOptions{}
		if c.sessionID != "" {
			opts.HTTPHeader = http.Header{identity.SessionHeaderName: []string{c.sessionID}}
		}

		conn, resp, err := websocket.Dial(ctx, wsURL(c.baseURL)+wsStreamPath+"?"+req.Query().Encode(), opts)
		if err != nil {
			if ctx.Err() != nil {
				yield(domain.Chunk{}, ctx.Err())
				return
			}
			if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
				yield(domain.Chunk{}, statusError(resp))
				return
			}
			yield(domain.Chunk{}, wrapTransport("dial", err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxPayloadSize)

		for seq := 1; ; seq++ {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				switch {
				case ctx.Err() != nil:
					yield(domain.Chunk{}, ctx.Err())
				case websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, io.EOF):
					yield(domain.Chunk{}, wrapTransport("read stream", io.ErrUnexpectedEOF))
				default:
					yield(domain.Chunk{}, wrapTransport("read stream", err))
				}
				return
			}
			if typ != websocket.MessageText {
				yield(domain.Chunk{}, transportErr("unexpected binary message"))
				return
			}

			chunk := sse.Decode(seq, string(data))
			if !yield(chunk, nil) {
				return
			}
			if chunk.IsEnd() {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	default:
		return base
	}
}
