package domain

// Sender identifies who a bubble is rendered for.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderBrand Sender = "brand"
)

// Bubble is one progressively revealed chat message.
type Bubble struct {
	From        Sender
	FullText    string
	VisibleText string
}

// Done reports whether the bubble is fully revealed.
func (b Bubble) Done() bool {
	return len(b.VisibleText) == len(b.FullText)
}

// TypingSession is the animation state of one channel.
type TypingSession struct {
	Channel  string
	Bubbles  []Bubble
	IsTyping bool
}

// Clone returns a deep copy of the session.
func (s TypingSession) Clone() TypingSession {
	out := s
	out.Bubbles = append([]Bubble(nil), s.Bubbles...)
	return out
}
