// Package generator produces the incremental campaign-plan chunks streamed to
// clients. The content is placeholder text; what matters is the chunk
// sequence and its timing.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/metrics"
)

const (
	// DefaultChunkCount is the number of partial chunks per stream.
	DefaultChunkCount = 3
	// DefaultInterval is the cadence at which partial chunks are emitted.
	DefaultInterval = 800 * time.Millisecond

	campaignIDSpace = 10000
)

// IDSource draws the numeric part of a campaign ID. Values are reduced
// modulo the fixed ID space.
type IDSource func() int

// Generator emits partial campaign plans on a fixed cadence.
type Generator struct {
	chunks   int
	interval time.Duration
	ids      IDSource
	timers   atomic.Int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithChunkCount sets the number of partial chunks. Non-positive values are ignored.
func WithChunkCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.chunks = n
		}
	}
}

// WithInterval sets the emission cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithIDSource replaces the random campaign ID draw.
func WithIDSource(src IDSource) Option {
	return func(g *Generator) {
		if src != nil {
			g.ids = src
		}
	}
}

// New creates a Generator with the reference defaults.
func New(opts ...Option) *Generator {
	g := &Generator{
		chunks:   DefaultChunkCount,
		interval: DefaultInterval,
		ids:      func() int { return rand.IntN(campaignIDSpace) },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ChunkCount returns the number of partial chunks per stream.
func (g *Generator) ChunkCount() int {
	return g.chunks
}

// ActiveTimers returns the number of tickers currently held by running
// streams.
func (g *Generator) ActiveTimers() int64 {
	return g.timers.Load()
}

// Generate returns the chunk sequence for req: ChunkCount partial chunks
// followed by exactly one end chunk, with strictly increasing sequence
// numbers starting at 1. The ticker is released before the end chunk is
// yielded, when ctx is cancelled, or when the consumer stops iterating.
func (g *Generator) Generate(ctx context.Context, req domain.CampaignRequest) iter.Seq2[domain.Chunk, error] {
	req = req.Clone()
	return func(yield func(domain.Chunk, error) bool) {
		campaignID := fmt.Sprintf("CMP-%04d", ((g.ids()%campaignIDSpace)+campaignIDSpace)%campaignIDSpace)

		ticker := time.NewTicker(g.interval)
		g.timers.Add(1)
		metrics.GeneratorTimers.Inc()
		release := sync.OnceFunc(func() {
			ticker.Stop()
			g.timers.Add(-1)
			metrics.GeneratorTimers.Dec()
		})
		defer release()

		for seq := 1; seq <= g.chunks; seq++ {
			select {
			case <-ctx.Done():
				yield(domain.Chunk{}, ctx.Err())
				return
			case <-ticker.C:
			}

			raw, err := json.Marshal(buildPlan(campaignID, req, seq))
			if err != nil {
				yield(domain.Chunk{}, fmt.Errorf("marshal chunk %d: %w", seq, err))
				return
			}
			metrics.ChunksEmitted.Inc()
			if !yield(domain.PartialChunk(seq, string(raw)), nil) {
				return
			}
		}

		release()
		yield(domain.EndChunk(g.chunks+1), nil)
	}
}

// buildPlan recomputes the whole plan for chunk n. Each partial is a complete
// document, not a diff of the previous one.
func buildPlan(campaignID string, req domain.CampaignRequest, n int) domain.CampaignPlan {
	sources := make([]string, 0, len(req.Sources))
	sources = append(sources, req.Sources...)

	perChannel := make([]domain.ChannelMessage, 0, len(req.Channels))
	for _, ch := range req.Channels {
		perChannel = append(perChannel, domain.ChannelMessage{
			Channel: ch,
			Message: domain.Message{
				Text: fmt.Sprintf("Sample %s message part %d for %q", ch, n, req.CampaignName),
			},
		})
	}

	return domain.CampaignPlan{
		CampaignID:   campaignID,
		CampaignName: req.CampaignName,
		Objective:    string(req.Objective),
		Strategy: domain.Strategy{
			Sources:    sources,
			PerChannel: perChannel,
		},
	}
}
