package annotate

import (
	"slices"

	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/core"
)

// span accumulates consecutive tokens of one entity.
type span struct {
	group      string
	start, end int
	scores     float64
	tokens     int
}

// Aggregate merges token-level tags into whole-word entity spans.
//
// A token continues the open span when it has the same entity group and is
// an I- tag, a bare tag, a "##" word piece, or starts exactly where the
// previous token ended. Anything else closes the span. "O" tokens are
// dropped. Each span's score is the mean of its token scores and its text is
// text[start:end]. Tokens whose offsets fall outside text are ignored.
func Aggregate(text string, tokens []ai.TaggedToken) []core.EntityAnnotation {
	entities := make([]core.EntityAnnotation, 0)
	var cur *span

	flush := func() {
		if cur == nil {
			return
		}
		entities = append(entities, core.EntityAnnotation{
			Label: cur.group,
			Text:  text[cur.start:cur.end],
			Score: cur.scores / float64(cur.tokens),
			Start: cur.start,
			End:   cur.end,
		})
		cur = nil
	}

	for _, tok := range tokens {
		prefix, group := ai.SplitTag(tok.Entity)
		if group == "" || group == ai.OutsideTag {
			flush()
			continue
		}
		if tok.Start < 0 || tok.End > len(text) || tok.Start >= tok.End {
			continue
		}

		if cur != nil && cur.group == group && tok.Start >= cur.end &&
			(prefix != "B" || tok.IsWordPiece() || tok.Start == cur.end) {
			cur.end = tok.End
			cur.scores += tok.Score
			cur.tokens++
			continue
		}

		flush()
		cur = &span{group: group, start: tok.Start, end: tok.End, scores: tok.Score, tokens: 1}
	}
	flush()

	slices.SortStableFunc(entities, func(a, b core.EntityAnnotation) int { return a.Start - b.Start })
	return entities
}
