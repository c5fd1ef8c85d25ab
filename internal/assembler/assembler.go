// Package assembler reconstructs a campaign plan from the chunks of one stream.
package assembler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

// ErrClosed is returned when a chunk is fed after the terminal chunk.
var ErrClosed = errors.New("assembler: stream already terminated")

// Mode selects how the terminal chunk turns the received partials into a plan.
type Mode int

const (
	// ParseLastPartial parses only the most recent partial payload. Every
	// partial is a complete document, so the last one is the final plan.
	ParseLastPartial Mode = iota

	// ParseWholeBuffer parses the newline-joined concatenation of all
	// partials as one JSON document. This only succeeds when exactly one
	// partial arrived; with more, the buffer holds several top-level values
	// and parsing fails.
	ParseWholeBuffer
)

func (m Mode) String() string {
	switch m {
	case ParseLastPartial:
		return "last-partial"
	case ParseWholeBuffer:
		return "whole-buffer"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Assembler accumulates the chunks of a single stream attempt. It is safe for
// concurrent use but is not reusable: create a new one per stream.
type Assembler struct {
	mu       sync.Mutex
	mode     Mode
	buf      strings.Builder
	last     string
	partials int
	done     bool
	plan     *domain.CampaignPlan
}

// New creates an assembler using mode.
func New(mode Mode) *Assembler {
	return &Assembler{mode: mode}
}

// Feed consumes one chunk. It returns the plan once the terminal chunk has
// been fed and parsed; partial chunks return (nil, nil). A terminal chunk whose
// payload cannot be parsed returns an error wrapping domain.ErrMalformedPayload
// and leaves the buffer intact.
func (a *Assembler) Feed(chunk domain.Chunk) (*domain.CampaignPlan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return nil, ErrClosed
	}

	if !chunk.IsEnd() {
		a.buf.WriteString(chunk.Raw)
		a.buf.WriteByte('\n')
		a.last = chunk.Raw
		a.partials++
		return nil, nil
	}

	a.done = true
	plan, err := a.parse()
	if err != nil {
		return nil, err
	}
	a.plan = plan
	return plan, nil
}

func (a *Assembler) parse() (*domain.CampaignPlan, error) {
	if a.partials == 0 {
		return nil, fmt.Errorf("%w: stream ended without any partial chunk", domain.ErrMalformedPayload)
	}

	var src string
	switch a.mode {
	case ParseWholeBuffer:
		src = a.buf.String()
	default:
		src = a.last
	}

	var plan domain.CampaignPlan
	if err := json.Unmarshal([]byte(src), &plan); err != nil {
		return nil, fmt.Errorf("%w: %s parse of %d partial(s): %w", domain.ErrMalformedPayload, a.mode, a.partials, err)
	}
	return &plan, nil
}

// Buffer returns the concatenation of all partial payloads received so far,
// each followed by a newline.
func (a *Assembler) Buffer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

// Plan returns the parsed plan, or nil if the stream has not terminated
// successfully.
func (a *Assembler) Plan() *domain.CampaignPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plan
}

// Partials returns the number of partial chunks fed.
func (a *Assembler) Partials() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.partials
}

// Done reports whether the terminal chunk has been fed.
func (a *Assembler) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}
