// Package render draws session snapshots as plain-text chat bubbles.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mashkdul/Perplexity-mockup/internal/session"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	cursor      = "▌"
)

// Format renders st as text: a status line, the raw stream while no plan is
// available, then one block per channel.
func Format(st session.State) string {
	var b strings.Builder
	b.WriteString(StatusLine(st))
	b.WriteByte('\n')

	if st.Plan == nil {
		if st.Buffer != "" {
			b.WriteString("\nRaw stream:\n")
			for _, line := range strings.Split(strings.TrimRight(st.Buffer, "\n"), "\n") {
				b.WriteString("  ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		return b.String()
	}

	p := st.Plan
	fmt.Fprintf(&b, "\nPlan %s %q (%s)\n", p.CampaignID, p.CampaignName, p.Objective)
	if len(p.Strategy.Sources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(p.Strategy.Sources, ", "))
	}
	if len(p.Strategy.PerChannel) == 0 {
		b.WriteString("No channels selected.\n")
	}

	for _, s := range st.Channels {
		b.WriteString("\n[")
		b.WriteString(s.Channel)
		b.WriteByte(']')
		if s.IsTyping {
			b.WriteString(" typing…")
		}
		b.WriteByte('\n')
		for _, bubble := range s.Bubbles {
			b.WriteString("  > ")
			b.WriteString(bubble.VisibleText)
			if !bubble.Done() {
				b.WriteString(cursor)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// StatusLine summarises the session lifecycle in one line.
func StatusLine(st session.State) string {
	partials := strings.Count(st.Buffer, "\n")
	switch st.Status {
	case session.StatusStreaming:
		return fmt.Sprintf("● live · %d partial(s) received", partials)
	case session.StatusCompleted:
		if typing := typingCount(st); typing > 0 {
			return fmt.Sprintf("✓ complete · %d channel(s) typing", typing)
		}
		return "✓ complete"
	case session.StatusFailed:
		return fmt.Sprintf("✗ failed: %v", st.Err)
	case session.StatusCancelled:
		return fmt.Sprintf("■ cancelled · %d partial(s) received", partials)
	default:
		return "○ idle"
	}
}

func typingCount(st session.State) int {
	n := 0
	for _, s := range st.Channels {
		if s.IsTyping {
			n++
		}
	}
	return n
}

// Renderer writes frames for successive snapshots. In redraw mode every
// changed frame replaces the screen; otherwise a frame is written only when
// the session makes visible progress (a status change, a new partial, or a
// finished bubble), which keeps piped output readable.
type Renderer struct {
	w      io.Writer
	redraw bool

	mu   sync.Mutex
	last string
	err  error
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, redraw bool) *Renderer {
	return &Renderer{w: w, redraw: redraw}
}

// Update renders st if it differs from the previous frame. It has the
// signature of session.Controller.OnChange listeners.
func (r *Renderer) Update(st session.State) {
	frame := Format(st)
	key := frame
	if !r.redraw {
		key = progressKey(st)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil || key == r.last {
		return
	}
	r.last = key

	if r.redraw {
		frame = clearScreen + frame
	} else {
		frame += "\n"
	}
	if _, err := io.WriteString(r.w, frame); err != nil {
		r.err = fmt.Errorf("render frame: %w", err)
	}
}

// Err returns the first write error, after which the renderer stops writing.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func progressKey(st session.State) string {
	done := 0
	for _, s := range st.Channels {
		for _, b := range s.Bubbles {
			if b.Done() {
				done++
			}
		}
	}
	return fmt.Sprintf("%d/%s/%d/%d", st.StreamID, st.Status, strings.Count(st.Buffer, "\n"), done)
}
