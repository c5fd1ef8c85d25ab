package domain

// ChunkKind discriminates stream frames.
type ChunkKind string

const (
	// ChunkPartial carries a complete in-progress CampaignPlan document.
	ChunkPartial ChunkKind = "partial"
	// ChunkEnd is the terminal marker. It is always last and unique.
	ChunkEnd ChunkKind = "end"
)

// Chunk is one transport frame.
type Chunk struct {
	Kind     ChunkKind
	Sequence int
	Raw      string
}

// PartialChunk builds a partial chunk.
func PartialChunk(seq int, raw string) Chunk {
	return Chunk{Kind: ChunkPartial, Sequence: seq, Raw: raw}
}

// EndChunk builds the terminal marker.
func EndChunk(seq int) Chunk {
	return Chunk{Kind: ChunkEnd, Sequence: seq}
}

// IsEnd reports whether c is the terminal marker.
func (c Chunk) IsEnd() bool {
	return c.Kind == ChunkEnd
}
