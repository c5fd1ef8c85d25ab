package typing

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Default reveal timing.
const (
	DefaultStartDelayMax = 800 * time.Millisecond
	DefaultCadenceMin    = 20 * time.Millisecond
	DefaultCadenceMax    = 60 * time.Millisecond
)

// Timing supplies the delays of a reveal. Play draws StartDelay and then
// Cadence once per bubble, in plan order, before any bubble appears.
type Timing interface {
	StartDelay() time.Duration
	Cadence() time.Duration
}

// RandomTiming draws uniform delays from a seeded PCG source, so a fixed seed
// replays the same animation.
type RandomTiming struct {
	mu         sync.Mutex
	rng        *rand.Rand
	startMax   time.Duration
	cadenceMin time.Duration
	cadenceMax time.Duration
}

// NewRandomTiming returns a RandomTiming drawing start delays from
// [0, startMax) and cadences from [cadenceMin, cadenceMax). A zero seed picks a
// random one.
func NewRandomTiming(seed uint64, startMax, cadenceMin, cadenceMax time.Duration) *RandomTiming {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomTiming{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		startMax:   startMax,
		cadenceMin: cadenceMin,
		cadenceMax: cadenceMax,
	}
}

// DefaultTiming returns a randomly seeded RandomTiming with the default bounds.
func DefaultTiming() *RandomTiming {
	return NewRandomTiming(0, DefaultStartDelayMax, DefaultCadenceMin, DefaultCadenceMax)
}

// StartDelay implements Timing.
func (t *RandomTiming) StartDelay() time.Duration {
	return t.draw(0, t.startMax)
}

// Cadence implements Timing.
func (t *RandomTiming) Cadence() time.Duration {
	return t.draw(t.cadenceMin, t.cadenceMax)
}

func (t *RandomTiming) draw(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo + time.Duration(t.rng.Int64N(int64(hi-lo)))
}

// FixedTiming uses the same delays for every bubble.
type FixedTiming struct {
	Start time.Duration
	Tick  time.Duration
}

// StartDelay implements Timing.
func (t FixedTiming) StartDelay() time.Duration { return t.Start }

// Cadence implements Timing.
func (t FixedTiming) Cadence() time.Duration { return t.Tick }
