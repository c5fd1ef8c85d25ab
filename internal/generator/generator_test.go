package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

func newTestGenerator(opts ...Option) *Generator {
	base := []Option{
		WithInterval(2 * time.Millisecond),
		WithIDSource(func() int { return 42 }),
	}
	return New(append(base, opts...)...)
}

func collect(t *testing.T, g *Generator, req domain.CampaignRequest) []domain.Chunk {
	t.Helper()
	var chunks []domain.Chunk
	for chunk, err := range g.Generate(context.Background(), req) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestGenerateEmitsPartialsThenSingleEnd(t *testing.T) {
	t.Parallel()

	g := newTestGenerator()
	req := domain.NewCampaignRequest("Fall Sale", domain.ObjectiveConversion, []string{"website"}, []string{"email"})
	chunks := collect(t, g, req)

	if len(chunks) != DefaultChunkCount+1 {
		t.Fatalf("expected %d chunks, got %d", DefaultChunkCount+1, len(chunks))
	}
	for i, c := range chunks[:DefaultChunkCount] {
		if c.Kind != domain.ChunkPartial {
			t.Fatalf("chunk %d: expected partial, got %s", i, c.Kind)
		}
	}
	if !chunks[len(chunks)-1].IsEnd() {
		t.Fatal("expected last chunk to be the end marker")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Sequence <= chunks[i-1].Sequence {
			t.Fatalf("sequence not strictly increasing at %d: %d <= %d", i, chunks[i].Sequence, chunks[i-1].Sequence)
		}
	}
	if g.ActiveTimers() != 0 {
		t.Fatalf("expected no active timers after completion, got %d", g.ActiveTimers())
	}
}

func TestGenerateChunkCountOption(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(WithChunkCount(5))
	chunks := collect(t, g, domain.NewCampaignRequest("x", domain.ObjectiveRetention, nil, []string{"sms"}))
	ends := 0
	for _, c := range chunks {
		if c.IsEnd() {
			ends++
		}
	}
	if len(chunks) != 6 || ends != 1 {
		t.Fatalf("expected 5 partials and 1 end, got %d chunks with %d ends", len(chunks), ends)
	}
}

func TestGeneratePartialsAreCompleteDocuments(t *testing.T) {
	t.Parallel()

	g := newTestGenerator()
	req := domain.NewCampaignRequest("Fall Sale", domain.ObjectiveConversion, []string{"website"}, []string{"email", "sms"})
	chunks := collect(t, g, req)

	for i, c := range chunks[:DefaultChunkCount] {
		var plan domain.CampaignPlan
		if err := json.Unmarshal([]byte(c.Raw), &plan); err != nil {
			t.Fatalf("chunk %d is not valid JSON: %v", i, err)
		}
		if plan.CampaignID != "CMP-0042" {
			t.Errorf("chunk %d: unexpected campaign id %q", i, plan.CampaignID)
		}
		if plan.CampaignName != "Fall Sale" || plan.Objective != "conversion" {
			t.Errorf("chunk %d: unexpected header %+v", i, plan)
		}
		if len(plan.Strategy.PerChannel) != 2 {
			t.Fatalf("chunk %d: expected 2 channel entries, got %d", i, len(plan.Strategy.PerChannel))
		}
		want := "part " + string(rune('1'+i))
		if !strings.Contains(plan.Strategy.PerChannel[0].Message.Text, want) {
			t.Errorf("chunk %d: text %q does not embed %q", i, plan.Strategy.PerChannel[0].Message.Text, want)
		}
	}
}

func TestGenerateCampaignIDStableWithinStream(t *testing.T) {
	t.Parallel()

	draws := 0
	g := New(WithInterval(time.Millisecond), WithIDSource(func() int {
		draws++
		return 7 + draws
	}))
	chunks := collect(t, g, domain.NewCampaignRequest("x", domain.ObjectiveConversion, nil, []string{"email"}))

	var first string
	for _, c := range chunks {
		if c.IsEnd() {
			continue
		}
		var plan domain.CampaignPlan
		if err := json.Unmarshal([]byte(c.Raw), &plan); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if first == "" {
			first = plan.CampaignID
		}
		if plan.CampaignID != first {
			t.Fatalf("campaign id changed within stream: %q -> %q", first, plan.CampaignID)
		}
	}
	if draws != 1 {
		t.Fatalf("expected a single id draw per stream, got %d", draws)
	}
}

func TestGenerateZeroChannels(t *testing.T) {
	t.Parallel()

	g := newTestGenerator()
	chunks := collect(t, g, domain.NewCampaignRequest("x", domain.ObjectiveEngagement, nil, nil))
	if len(chunks) != DefaultChunkCount+1 {
		t.Fatalf("expected %d chunks, got %d", DefaultChunkCount+1, len(chunks))
	}
	for _, c := range chunks[:DefaultChunkCount] {
		if !strings.Contains(c.Raw, `"per_channel":[]`) {
			t.Fatalf("expected empty per_channel list, got %s", c.Raw)
		}
		if !strings.Contains(c.Raw, `"sources":[]`) {
			t.Fatalf("expected empty sources list, got %s", c.Raw)
		}
	}
}

func TestGenerateCancelReleasesTimer(t *testing.T) {
	t.Parallel()

	g := New(WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		for _, err := range g.Generate(ctx, domain.NewCampaignRequest("x", domain.ObjectiveConversion, nil, []string{"email"})) {
			if err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	deadline := time.Now().Add(2 * time.Second)
	for g.ActiveTimers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for generator to start")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop after cancel")
	}
	if g.ActiveTimers() != 0 {
		t.Fatalf("expected timers to drop to zero, got %d", g.ActiveTimers())
	}
}

func TestGenerateConsumerBreakReleasesTimer(t *testing.T) {
	t.Parallel()

	g := newTestGenerator()
	for chunk, err := range g.Generate(context.Background(), domain.NewCampaignRequest("x", domain.ObjectiveConversion, nil, []string{"email"})) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chunk.Sequence == 1 {
			break
		}
	}
	if g.ActiveTimers() != 0 {
		t.Fatalf("expected timers to drop to zero, got %d", g.ActiveTimers())
	}
}
