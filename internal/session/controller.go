// Package session drives one client campaign session: it opens the stream,
// assembles the plan, and hands it to the typing animator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mashkdul/Perplexity-mockup/internal/assembler"
	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/transport"
	"github.com/mashkdul/Perplexity-mockup/internal/typing"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s ends a stream attempt.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// State is an immutable snapshot of a session.
type State struct {
	Status   Status
	StreamID uint64 // increments with every Start
	Request  domain.CampaignRequest
	Buffer   string
	Plan     *domain.CampaignPlan
	Err      error
	Channels []domain.TypingSession
}

// Option configures a Controller.
type Option func(*Controller)

// WithAssemblerMode selects how the terminal chunk is parsed.
func WithAssemblerMode(mode assembler.Mode) Option {
	return func(c *Controller) {
		c.mode = mode
	}
}

// Controller owns the active transport handle, the assembler of the current
// stream, and the animator.
type Controller struct {
	transport transport.Transport
	animator  *typing.Animator
	mode      assembler.Mode

	mu        sync.Mutex
	status    Status
	streamID  uint64
	req       domain.CampaignRequest
	asm       *assembler.Assembler
	plan      *domain.CampaignPlan
	err       error
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	listeners []func(State)
	rev       uint64

	// animMu orders animator Reset and Play across runs. Never acquire it
	// while holding mu.
	animMu sync.Mutex

	notifyMu  sync.Mutex
	delivered uint64
}

// NewController creates an idle controller. A nil animator gets one with
// default timing.
func NewController(tr transport.Transport, animator *typing.Animator, opts ...Option) *Controller {
	if animator == nil {
		animator = typing.NewAnimator(nil)
	}
	done := make(chan struct{})
	close(done)
	c := &Controller{
		transport: tr,
		animator:  animator,
		mode:      assembler.ParseLastPartial,
		status:    StatusIdle,
		cancel:    func() {},
		done:      done,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.asm = assembler.New(c.mode)
	animator.OnChange(func([]domain.TypingSession) { c.notify() })
	return c
}

// OnChange registers fn to receive state snapshots. Calls are serialised and
// never go back in time; intermediate snapshots may be skipped. fn must not
// call Start, Stop or Close.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start opens a new stream for req. It is a no-op while a stream is already
// running or after Close, and reports whether a stream was started.
func (c *Controller) Start(ctx context.Context, req domain.CampaignRequest) bool {
	c.mu.Lock()
	if c.closed || c.status == StatusStreaming {
		c.mu.Unlock()
		return false
	}
	c.cancel()
	c.streamID++
	streamID := c.streamID
	c.status = StatusStreaming
	c.req = req.Clone()
	c.asm = assembler.New(c.mode)
	c.plan = nil
	c.err = nil
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	asm := c.asm
	c.mu.Unlock()

	c.animMu.Lock()
	c.animator.Reset()
	c.animMu.Unlock()

	slog.Info("Campaign stream starting",
		"stream_id", streamID,
		"campaign_name", req.CampaignName,
		"objective", req.Objective,
		"channels", req.Channels,
	)
	c.notify()

	go c.run(runCtx, streamID, c.req, asm, done)
	return true
}

func (c *Controller) run(ctx context.Context, streamID uint64, req domain.CampaignRequest, asm *assembler.Assembler, done chan struct{}) {
	defer close(done)

	for chunk, err := range c.transport.Open(ctx, req) {
		if err != nil {
			c.fail(streamID, err)
			return
		}

		plan, err := asm.Feed(chunk)
		if err != nil {
			c.fail(streamID, err)
			return
		}
		if chunk.IsEnd() {
			c.complete(streamID, plan)
			return
		}
		slog.Debug("Campaign chunk received", "stream_id", streamID, "sequence", chunk.Sequence)
		c.notify()
	}

	c.fail(streamID, fmt.Errorf("%w: stream closed without terminal chunk", domain.ErrTransport))
}

// fail settles the run as Failed, or Cancelled when err is a cancellation.
func (c *Controller) fail(streamID uint64, err error) {
	c.mu.Lock()
	if c.streamID != streamID || c.status != StatusStreaming {
		c.mu.Unlock()
		return
	}
	c.cancel()
	if errors.Is(err, context.Canceled) {
		c.status = StatusCancelled
	} else {
		c.status = StatusFailed
		c.err = err
	}
	status := c.status
	c.mu.Unlock()

	switch {
	case status == StatusCancelled:
		slog.Info("Campaign stream cancelled", "stream_id", streamID)
	case errors.Is(err, domain.ErrMalformedPayload):
		slog.Warn("Campaign payload malformed", "stream_id", streamID, "error", err)
	default:
		slog.Error("Campaign stream failed", "stream_id", streamID, "error", err)
	}
	c.notify()
}

func (c *Controller) complete(streamID uint64, plan *domain.CampaignPlan) {
	c.mu.Lock()
	if c.streamID != streamID || c.status != StatusStreaming {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.status = StatusCompleted
	c.plan = plan
	c.mu.Unlock()

	slog.Info("Campaign plan assembled",
		"stream_id", streamID,
		"campaign_id", plan.CampaignID,
		"messages", len(plan.Strategy.PerChannel),
	)

	c.animMu.Lock()
	if c.currentStream() == streamID {
		c.animator.Play(*plan)
	}
	c.animMu.Unlock()
	c.notify()
}

func (c *Controller) currentStream() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamID
}

// Stop cancels the running stream. The received buffer is kept. It is a
// no-op unless a stream is running.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.status != StatusStreaming {
		c.mu.Unlock()
		return
	}
	c.status = StatusCancelled
	c.cancel()
	streamID := c.streamID
	c.mu.Unlock()

	slog.Info("Campaign stream stopped", "stream_id", streamID)
	c.notify()
}

// Close stops any stream and animation. Later calls to Start are no-ops.
func (c *Controller) Close() {
	c.Stop()

	c.mu.Lock()
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.animMu.Lock()
	c.animator.Reset()
	c.animMu.Unlock()
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	st := c.stateLocked()
	c.mu.Unlock()
	st.Channels = c.animator.Snapshot()
	return st
}

func (c *Controller) stateLocked() State {
	return State{
		Status:   c.status,
		StreamID: c.streamID,
		Request:  c.req.Clone(),
		Buffer:   c.asm.Buffer(),
		Plan:     c.plan,
		Err:      c.err,
	}
}

// Wait blocks until the current run has settled and, if it completed, every
// bubble has been revealed. It returns ctx.Err() if ctx ends first.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	// done closes after complete has started the animation.
	return c.animator.Wait(ctx)
}

func (c *Controller) notify() {
	c.mu.Lock()
	c.rev++
	rev := c.rev
	st := c.stateLocked()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if rev <= c.delivered {
		return
	}
	c.delivered = rev
	st.Channels = c.animator.Snapshot()
	for _, fn := range listeners {
		fn(st)
	}
}
