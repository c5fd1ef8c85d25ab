package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mashkdul/Perplexity-mockup/internal/api"
	"github.com/mashkdul/Perplexity-mockup/internal/config"
	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/generator"
	"github.com/mashkdul/Perplexity-mockup/internal/sse"
)

func newStreamServer(t *testing.T, interval time.Duration) (*httptest.Server, *generator.Generator) {
	t.Helper()
	gen := generator.New(
		generator.WithInterval(interval),
		generator.WithIDSource(func() int { return 1234 }),
	)
	r := chi.NewRouter()
	api.NewStreamHandler(gen, nil, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, gen
}

func request() domain.CampaignRequest {
	return domain.NewCampaignRequest("Fall Sale", domain.ObjectiveEngagement, []string{"shopify"}, []string{"email", "whatsapp"})
}

func drain(t *testing.T, tr Transport, ctx context.Context) ([]domain.Chunk, error) {
	t.Helper()
	var chunks []domain.Chunk
	for chunk, err := range tr.Open(ctx, request()) {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func transports(srv *httptest.Server) map[string]Transport {
	return map[string]Transport{
		config.TransportSSE:       NewSSEClient(srv.URL, "", nil),
		config.TransportWebSocket: NewWSClient(srv.URL, ""),
	}
}

func TestOpen_RoundTrip(t *testing.T) {
	t.Parallel()

	srv, _ := newStreamServer(t, 2*time.Millisecond)
	for name, tr := range transports(srv) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			chunks, err := drain(t, tr, context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chunks) != generator.DefaultChunkCount+1 {
				t.Fatalf("expected %d chunks, got %d", generator.DefaultChunkCount+1, len(chunks))
			}
			for i, c := range chunks {
				if c.Sequence != i+1 {
					t.Errorf("chunk %d: expected sequence %d, got %d", i, i+1, c.Sequence)
				}
			}
			if !chunks[len(chunks)-1].IsEnd() {
				t.Fatal("expected end chunk last")
			}
		})
	}
}

func TestOpen_CancelStopsServerGenerator(t *testing.T) {
	t.Parallel()

	srv, gen := newStreamServer(t, time.Hour)
	for name, tr := range transports(srv) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				_, err := drain(t, tr, ctx)
				done <- err
			}()

			waitFor(t, func() bool { return gen.ActiveTimers() == 1 })
			cancel()

			select {
			case err := <-done:
				if !errors.Is(err, context.Canceled) {
					t.Fatalf("expected context.Canceled, got %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("transport did not return after cancel")
			}
			waitFor(t, func() bool { return gen.ActiveTimers() == 0 })
		})
	}
}

func TestSSEClient_BadRequestIsTransportError(t *testing.T) {
	t.Parallel()

	srv, _ := newStreamServer(t, time.Millisecond)
	tr := NewSSEClient(srv.URL, "", nil)

	req := request()
	req.Objective = "awareness"
	for _, err := range tr.Open(context.Background(), req) {
		if !errors.Is(err, domain.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		return
	}
	t.Fatal("expected an error")
}

func TestSSEClient_WrongContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	t.Cleanup(srv.Close)

	_, err := drain(t, NewSSEClient(srv.URL, "", nil), context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSSEClient_PrematureEOF(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_ = sse.WriteFrame(w, `{"campaign_id":"CMP-0001"}`)
	}))
	t.Cleanup(srv.Close)

	chunks, err := drain(t, NewSSEClient(srv.URL, "", nil), context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected the partial before the failure, got %d chunks", len(chunks))
	}
}

func TestSSEClient_SendsSessionHeader(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Campaign-Session-ID")
		w.Header().Set("Content-Type", "text/event-stream")
		_ = sse.WriteFrame(w, sse.EndSentinel)
	}))
	t.Cleanup(srv.Close)

	if _, err := drain(t, NewSSEClient(srv.URL, "tab-9", nil), context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid := <-got; sid != "tab-9" {
		t.Fatalf("expected session header tab-9, got %q", sid)
	}
}

func TestWSClient_DialFailureIsTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := drain(t, NewWSClient(srv.URL, ""), context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if tr, err := New("", "http://localhost:4000/", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if c, ok := tr.(*SSEClient); !ok || c.baseURL != "http://localhost:4000" {
		t.Fatalf("expected SSE client with trimmed base URL, got %#v", tr)
	}
	if tr, err := New(config.TransportWebSocket, "http://localhost:4000", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if _, ok := tr.(*WSClient); !ok {
		t.Fatalf("expected WebSocket client, got %T", tr)
	}
	if _, err := New("carrier-pigeon", "http://localhost:4000", ""); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestWSURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://a:1": "ws://a:1",
		"https://a":  "wss://a",
		"ws://a":     "ws://a",
	}
	for in, want := range cases {
		if got := wsURL(in); got != want {
			t.Errorf("wsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
