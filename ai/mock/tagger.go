package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/ragprep/ai"
)

// MockEntityTagger is a test double for ai.EntityTagger.
// By default it tags every occurrence of a Lexicon phrase the way a
// word-piece BERT tagger does: one B- token for the first piece, I- tokens
// for following words and "##" pieces for words longer than PieceLength.
type MockEntityTagger struct {
	// TagFunc is called by Tag if set.
	TagFunc func(ctx context.Context, text string) ([]ai.TaggedToken, error)

	// Lexicon maps phrases to entity groups, e.g. "John Smith" -> "PER".
	Lexicon map[string]string

	// PieceLength splits longer words into word pieces. Zero disables splitting.
	PieceLength int

	// Score is assigned to every emitted token. Zero means 0.99.
	Score float64

	mu        sync.Mutex
	callCount int
}

// NewMockEntityTagger creates a mock tagger over the given lexicon.
func NewMockEntityTagger(lexicon map[string]string) *MockEntityTagger {
	return &MockEntityTagger{Lexicon: lexicon, PieceLength: 5}
}

// Tag returns word-piece tokens for each lexicon match, ordered by offset.
func (m *MockEntityTagger) Tag(ctx context.Context, text string) ([]ai.TaggedToken, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.TagFunc != nil {
		return m.TagFunc(ctx, text)
	}

	score := m.Score
	if score == 0 {
		score = 0.99
	}

	var tokens []ai.TaggedToken
	for phrase, group := range m.Lexicon {
		for from := 0; ; {
			idx := strings.Index(text[from:], phrase)
			if idx < 0 {
				break
			}
			start := from + idx
			tokens = append(tokens, m.pieces(text, start, start+len(phrase), group, score)...)
			from = start + len(phrase)
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
	return tokens, nil
}

func (m *MockEntityTagger) pieces(text string, start, end int, group string, score float64) []ai.TaggedToken {
	var tokens []ai.TaggedToken
	first := true
	for _, word := range wordSpans(text, start, end) {
		ws, we := word[0], word[1]
		for ws < we {
			pe := we
			if m.PieceLength > 0 && pe-ws > m.PieceLength {
				pe = ws + m.PieceLength
			}
			tag := "I-" + group
			if first {
				tag = "B-" + group
			}
			w := text[ws:pe]
			if ws != word[0] {
				w = "##" + w
			}
			tokens = append(tokens, ai.TaggedToken{Entity: tag, Score: score, Word: w, Start: ws, End: pe})
			first = false
			ws = pe
		}
	}
	return tokens
}

// wordSpans splits text[start:end] on spaces.
func wordSpans(text string, start, end int) [][2]int {
	var spans [][2]int
	ws := -1
	for i := start; i < end; i++ {
		if text[i] == ' ' {
			if ws >= 0 {
				spans = append(spans, [2]int{ws, i})
				ws = -1
			}
			continue
		}
		if ws < 0 {
			ws = i
		}
	}
	if ws >= 0 {
		spans = append(spans, [2]int{ws, end})
	}
	return spans
}

// CallCount returns the number of times Tag was called.
func (m *MockEntityTagger) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockEntityTagger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.TagFunc = nil
}
