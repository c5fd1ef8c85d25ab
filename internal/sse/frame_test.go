package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

func TestWriteFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteFrame(&buf, `{"a":1}`); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if got := buf.String(); got != "data: {\"a\":1}\n\n" {
		t.Fatalf("unexpected frame %q", got)
	}

	if err := WriteFrame(&buf, "two\nlines"); !errors.Is(err, ErrMultilinePayload) {
		t.Fatalf("expected ErrMultilinePayload, got %v", err)
	}
}

func TestReaderDecodesStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	for _, p := range []string{`{"n":1}`, `{"n":2}`, EndSentinel} {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	r := NewReader(&buf)
	var chunks []domain.Chunk
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		chunks = append(chunks, c)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Raw != `{"n":1}` || chunks[0].Sequence != 1 {
		t.Errorf("unexpected first chunk %+v", chunks[0])
	}
	if !chunks[2].IsEnd() || chunks[2].Sequence != 3 {
		t.Errorf("unexpected terminal chunk %+v", chunks[2])
	}
}

func TestReaderIgnoresCommentsAndCRLF(t *testing.T) {
	t.Parallel()

	stream := ": keepalive\r\n\r\ndata:{\"n\":1}\r\n\r\ndata: [END]\r\n\r\n"
	var got []domain.Chunk
	for c, err := range Frames(strings.NewReader(stream)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, c)
	}
	if len(got) != 2 || got[0].Raw != `{"n":1}` || !got[1].IsEnd() {
		t.Fatalf("unexpected chunks %+v", got)
	}
}

func TestReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("event: usage\ndata: {}\n\n"))
	if _, err := r.Next(); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestReaderUnexpectedEOF(t *testing.T) {
	t.Parallel()

	var sawErr error
	for _, err := range Frames(strings.NewReader("data: {\"n\":1}\n\n")) {
		if err != nil {
			sawErr = err
		}
	}
	if !errors.Is(sawErr, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", sawErr)
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	if got := Encode(domain.EndChunk(4)); got != EndSentinel {
		t.Errorf("expected sentinel, got %q", got)
	}
	if got := Encode(domain.PartialChunk(1, "{}")); got != "{}" {
		t.Errorf("expected raw payload, got %q", got)
	}
	if c := Decode(2, EndSentinel); !c.IsEnd() || c.Sequence != 2 {
		t.Errorf("unexpected decoded chunk %+v", c)
	}
}
