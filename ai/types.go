package ai

import "strings"

// EntityLabels is the label set of the default CoNLL-2003 tagging model.
var EntityLabels = []string{
	"LOC",
	"MISC",
	"ORG",
	"PER",
}

// OutsideTag marks a token that belongs to no entity.
const OutsideTag = "O"

// TaggedToken is one token-level result from an EntityTagger.
type TaggedToken struct {
	// Entity is the IOB tag, e.g. "B-PER", "I-ORG", a bare "LOC" or "O".
	Entity string `json:"entity"`

	// Score is the service's confidence in the tag, in [0, 1].
	Score float64 `json:"score"`

	// Word is the token text; word pieces carry a "##" prefix.
	Word string `json:"word"`

	// Start and End are byte offsets into the tagged text. Taggers whose
	// service reports code point offsets convert them before returning.
	Start int `json:"start"`
	End   int `json:"end"`
}

// SplitTag splits an IOB tag into its prefix ("B", "I" or "") and entity group.
func SplitTag(tag string) (prefix, group string) {
	if len(tag) > 2 && tag[1] == '-' && (tag[0] == 'B' || tag[0] == 'I') {
		return tag[:1], tag[2:]
	}
	return "", tag
}

// IsWordPiece reports whether the token continues the previous word.
func (t TaggedToken) IsWordPiece() bool {
	return strings.HasPrefix(t.Word, "##")
}
