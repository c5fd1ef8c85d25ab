// Package typing replays campaign messages as progressively typed chat
// bubbles, one independent animation per channel.
package typing

import (
	"context"
	"sync"
	"time"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

// Animator reveals the messages of a plan bubble by bubble. Channels animate
// concurrently; bubbles of one channel are revealed strictly in order.
//
// Every scheduled step carries the epoch it was started under. Reset and Play
// bump the epoch, so steps from an earlier animation become no-ops even if
// they were already running when the reset happened.
type Animator struct {
	timing Timing

	mu       sync.Mutex
	epoch    uint64
	sessions map[string]*domain.TypingSession
	order    []string
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func([]domain.TypingSession)
	rev      uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// NewAnimator creates an idle animator. A nil timing uses DefaultTiming.
func NewAnimator(timing Timing) *Animator {
	if timing == nil {
		timing = DefaultTiming()
	}
	done := make(chan struct{})
	close(done)
	return &Animator{
		timing:   timing,
		sessions: make(map[string]*domain.TypingSession),
		cancel:   func() {},
		done:     done,
	}
}

// OnChange registers fn to receive a snapshot after state changes. Calls are
// serialised and never go back in time, but intermediate snapshots may be
// skipped. fn runs on animation goroutines and must not call Play or Reset.
func (a *Animator) OnChange(fn func([]domain.TypingSession)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Play discards any running animation and starts revealing plan's messages.
// A plan without channel messages leaves the animator idle.
func (a *Animator) Play(plan domain.CampaignPlan) {
	a.mu.Lock()
	epoch := a.resetLocked()
	order, steps := schedule(plan, a.timing)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.order = order
	for _, ch := range order {
		a.sessions[ch] = &domain.TypingSession{Channel: ch, Bubbles: []domain.Bubble{}}
	}

	var wg sync.WaitGroup
	wg.Add(len(order))
	for _, ch := range order {
		go func() {
			defer wg.Done()
			a.animate(ctx, epoch, ch, steps[ch])
		}()
	}
	done := make(chan struct{})
	a.done = done
	go func() {
		wg.Wait()
		close(done)
	}()
	a.notifyLocked()
}

// Reset cancels every running animation and clears all bubbles. It returns
// after the state is cleared; in-flight steps of the old animation will not
// touch the new state.
func (a *Animator) Reset() {
	a.mu.Lock()
	a.resetLocked()
	a.notifyLocked()
}

// resetLocked must be called with a.mu held.
func (a *Animator) resetLocked() uint64 {
	a.epoch++
	a.cancel()
	a.cancel = func() {}
	clear(a.sessions)
	a.order = nil
	return a.epoch
}

// step is one bubble of a channel with its pre-drawn delays.
type step struct {
	text    string
	start   time.Duration
	cadence time.Duration
}

// schedule groups plan's messages by channel and draws the delays of every
// bubble in plan order before any goroutine runs, so a seeded Timing always
// produces the same animation.
func schedule(plan domain.CampaignPlan, timing Timing) ([]string, map[string][]step) {
	steps := make(map[string][]step)
	var order []string
	for _, cm := range plan.Strategy.PerChannel {
		if _, seen := steps[cm.Channel]; !seen {
			order = append(order, cm.Channel)
		}
		start := timing.StartDelay()
		cadence := timing.Cadence()
		steps[cm.Channel] = append(steps[cm.Channel], step{
			text:    cm.Message.Content(),
			start:   start,
			cadence: cadence,
		})
	}
	return order, steps
}

// notifyLocked releases a.mu and delivers a snapshot to the listener.
// Snapshots overtaken by a newer one are dropped, so the listener never sees
// state go backwards.
func (a *Animator) notifyLocked() {
	a.rev++
	rev := a.rev
	fn := a.onChange
	var snap []domain.TypingSession
	if fn != nil {
		snap = a.snapshotLocked()
	}
	a.mu.Unlock()

	if fn == nil {
		return
	}
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	if rev <= a.delivered {
		return
	}
	a.delivered = rev
	fn(snap)
}

// update applies fn to the channel's session if epoch is still current.
func (a *Animator) update(epoch uint64, channel string, fn func(s *domain.TypingSession)) bool {
	a.mu.Lock()
	s, ok := a.sessions[channel]
	if a.epoch != epoch || !ok {
		a.mu.Unlock()
		return false
	}
	fn(s)
	a.notifyLocked()
	return true
}

func (a *Animator) animate(ctx context.Context, epoch uint64, channel string, steps []step) {
	for _, st := range steps {
		text := st.text
		if !sleep(ctx, st.start) {
			return
		}

		idx := -1
		if !a.update(epoch, channel, func(s *domain.TypingSession) {
			s.Bubbles = append(s.Bubbles, domain.Bubble{From: domain.SenderUser, FullText: text})
			idx = len(s.Bubbles) - 1
			s.IsTyping = text != ""
		}) {
			return
		}
		if text == "" {
			continue
		}

		if !a.reveal(ctx, epoch, channel, idx, []rune(text), st.cadence) {
			return
		}
	}
}

// reveal shows one more rune of bubble idx per cadence tick.
func (a *Animator) reveal(ctx context.Context, epoch uint64, channel string, idx int, runes []rune, cadence time.Duration) bool {
	if cadence <= 0 {
		cadence = time.Millisecond
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for n := 1; n <= len(runes); n++ {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		last := n == len(runes)
		visible := string(runes[:n])
		if !a.update(epoch, channel, func(s *domain.TypingSession) {
			s.Bubbles[idx].VisibleText = visible
			if last {
				s.IsTyping = false
			}
		}) {
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Snapshot returns a copy of every channel's session in first-appearance order.
func (a *Animator) Snapshot() []domain.TypingSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Animator) snapshotLocked() []domain.TypingSession {
	out := make([]domain.TypingSession, 0, len(a.order))
	for _, ch := range a.order {
		if s, ok := a.sessions[ch]; ok {
			out = append(out, s.Clone())
		}
	}
	return out
}

// IsTyping reports whether channel currently has a bubble being revealed.
func (a *Animator) IsTyping(channel string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[channel]
	return ok && s.IsTyping
}

// Wait blocks until the current animation has revealed every bubble or been
// reset, or ctx is done.
func (a *Animator) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
