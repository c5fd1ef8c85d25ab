package transport

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"mime"
	"net/http"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/identity"
	"github.com/mashkdul/Perplexity-mockup/internal/sse"
)

// SSEClient reads campaign streams from the server-sent events endpoint.
type SSEClient struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

// NewSSEClient creates an SSE transport. A nil httpClient uses a client
// without an overall timeout.
func NewSSEClient(baseURL, sessionID string, httpClient *http.Client) *SSEClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &SSEClient{baseURL: baseURL, sessionID: sessionID, client: httpClient}
}

// Open implements Transport.
func (c *SSEClient) Open(ctx context.Context, req domain.CampaignRequest) iter.Seq2[domain.Chunk, error] {
	req = req.Clone()
	return func(yield func(domain.Chunk, error) bool) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+streamPath+"?"+req.Query().Encode(), nil)
		if err != nil {
			yield(domain.Chunk{}, wrapTransport("build request", err))
			return
		}
		httpReq.Header.Set("Accept", "text/event-stream")
		if c.sessionID != "" {
			httpReq.Header.Set(identity.SessionHeaderName, c.sessionID)
		}

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				yield(domain.Chunk{}, ctx.Err())
				return
			}
			yield(domain.Chunk{}, wrapTransport("connect", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield(domain.Chunk{}, statusError(resp))
			return
		}
		if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != "text/event-stream" {
			yield(domain.Chunk{}, transportErr("unexpected content type %q", resp.Header.Get("Content-Type")))
			return
		}

		for chunk, err := range sse.Frames(resp.Body) {
			if err != nil {
				if ctx.Err() != nil {
					yield(domain.Chunk{}, ctx.Err())
					return
				}
				yield(domain.Chunk{}, wrapTransport("read stream", err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// statusError turns a non-200 response into a transport error, including the
// server's JSON error message when there is one.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return transportErr("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return transportErr("server returned %d", resp.StatusCode)
}
