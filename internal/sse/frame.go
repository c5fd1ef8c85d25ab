// Package sse implements the text-event framing used by the campaign stream:
// every frame is a single `data: <payload>` line followed by a blank line, and
// the literal payload [END] terminates the stream.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

// EndSentinel is the payload of the terminal frame.
const EndSentinel = "[END]"

const (
	dataField     = "data:"
	maxFrameBytes = 1 << 20 // 1MB
)

var (
	// ErrMultilinePayload is returned when a payload would need more than one
	// data line.
	ErrMultilinePayload = errors.New("sse: payload contains a newline")

	// ErrMalformedFrame is returned for lines that are not data lines,
	// comments or frame separators.
	ErrMalformedFrame = errors.New("sse: malformed frame")
)

// WriteFrame writes one frame carrying payload.
func WriteFrame(w io.Writer, payload string) error {
	if strings.ContainsAny(payload, "\r\n") {
		return ErrMultilinePayload
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// Encode returns the payload that represents c on the wire.
func Encode(c domain.Chunk) string {
	if c.IsEnd() {
		return EndSentinel
	}
	return c.Raw
}

// Decode turns a frame payload into a chunk with the given sequence number.
func Decode(seq int, payload string) domain.Chunk {
	if payload == EndSentinel {
		return domain.EndChunk(seq)
	}
	return domain.PartialChunk(seq, payload)
}

// Reader decodes frames from a byte stream.
type Reader struct {
	scanner *bufio.Scanner
	seq     int
	ended   bool
}

// NewReader creates a frame reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next chunk. It returns io.EOF after the terminal frame and
// io.ErrUnexpectedEOF if the stream ends before it.
func (r *Reader) Next() (domain.Chunk, error) {
	if r.ended {
		return domain.Chunk{}, io.EOF
	}

	var data []string
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		switch {
		case line == "":
			if data == nil {
				continue
			}
			r.seq++
			chunk := Decode(r.seq, strings.Join(data, "\n"))
			r.ended = chunk.IsEnd()
			return chunk, nil
		case strings.HasPrefix(line, ":"):
			// Comment line.
		case strings.HasPrefix(line, dataField):
			value := strings.TrimPrefix(line, dataField)
			data = append(data, strings.TrimPrefix(value, " "))
		default:
			return domain.Chunk{}, fmt.Errorf("%w: %q", ErrMalformedFrame, line)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return domain.Chunk{}, err
	}
	return domain.Chunk{}, io.ErrUnexpectedEOF
}

// Frames returns the chunks of r as a sequence. The sequence ends after the
// terminal frame or at the first error, which is yielded.
func Frames(r io.Reader) iter.Seq2[domain.Chunk, error] {
	return func(yield func(domain.Chunk, error) bool) {
		reader := NewReader(r)
		for {
			chunk, err := reader.Next()
			if err != nil {
				yield(domain.Chunk{}, err)
				return
			}
			if !yield(chunk, nil) || chunk.IsEnd() {
				return
			}
		}
	}
}
