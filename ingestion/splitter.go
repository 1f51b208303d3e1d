package ingestion

import (
	"fmt"

	"github.com/poiesic/ragprep/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// CharacterSplitter cuts text into fixed-size rune windows that overlap by a
// fixed number of runes. Chunk i starts at rune i*(size-overlap); the last
// chunk ends at the end of the text.
type CharacterSplitter struct {
	size    int
	overlap int
}

var _ textsplitter.TextSplitter = (*CharacterSplitter)(nil)

// NewCharacterSplitter validates the window parameters.
func NewCharacterSplitter(size, overlap int) (*CharacterSplitter, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap %d cannot be negative", ErrInvalidChunking, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidChunking, overlap, size)
	}
	return &CharacterSplitter{size: size, overlap: overlap}, nil
}

// Size returns the chunk size in runes.
func (s *CharacterSplitter) Size() int { return s.size }

// Overlap returns the number of runes consecutive chunks share.
func (s *CharacterSplitter) Overlap() int { return s.overlap }

// SplitText implements textsplitter.TextSplitter.
func (s *CharacterSplitter) SplitText(text string) ([]string, error) {
	windows := s.windows([]rune(text))
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.text
	}
	return out, nil
}

// Split cuts one document into chunks tagged with its source.
func (s *CharacterSplitter) Split(doc core.Document) []core.Chunk {
	windows := s.windows([]rune(doc.Content))
	chunks := make([]core.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = core.Chunk{
			Source:  doc.Source,
			Index:   i,
			Offset:  w.offset,
			Content: w.text,
		}
	}
	return chunks
}

// SplitDocuments splits each document independently, so no chunk spans two
// documents.
func (s *CharacterSplitter) SplitDocuments(docs []core.Document) []core.Chunk {
	var chunks []core.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.Split(doc)...)
	}
	return chunks
}

type window struct {
	offset int
	text   string
}

func (s *CharacterSplitter) windows(runes []rune) []window {
	var out []window
	step := s.size - s.overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+s.size, len(runes))
		out = append(out, window{offset: start, text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return out
}
