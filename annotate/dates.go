package annotate

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/poiesic/ragprep/core"
)

// DefaultLanguages is used when Extract is called without languages.
var DefaultLanguages = []string{"en"}

// connectors are words a date search may capture around the date itself.
var connectors = map[string]bool{
	"on":    true,
	"in":    true,
	"at":    true,
	"and":   true,
	"by":    true,
	"since": true,
	"from":  true,
	"until": true,
	"to":    true,
}

// DateMatch is one date mention reported by a DateSearcher.
// Time is zero when the mention could not be resolved; Raw then carries
// whatever the service offered instead.
type DateMatch struct {
	Text string
	Time time.Time
	Raw  string
}

// DateSearcher finds date mentions in free text.
type DateSearcher interface {
	Search(ctx context.Context, text string, languages []string) ([]DateMatch, error)
}

// DateparserSearcher implements DateSearcher with go-dateparser.
// A date without a day resolves to the first of the month and dates
// without a zone are read as UTC.
//
// go-dateparser resolves a relative word against the last absolute match
// before it, including false positives. In "I may go to the second floor
// now." the modal "may" matches as the month of May and "now" resolves to
// the first of May rather than the current time.
type DateparserSearcher struct {
	// Now anchors relative dates such as "yesterday". When nil,
	// go-dateparser anchors them on the current time or on an absolute
	// date found earlier in the same text.
	Now func() time.Time
}

// NewDateparserSearcher returns a searcher with the default anchoring.
func NewDateparserSearcher() *DateparserSearcher {
	return &DateparserSearcher{}
}

// Search runs a go-dateparser search restricted to languages.
func (s *DateparserSearcher) Search(ctx context.Context, text string, languages []string) ([]DateMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := &dps.Configuration{
		Languages:           languages,
		DefaultTimezone:     time.UTC,
		PreferredDayOfMonth: dps.First,
	}
	if s.Now != nil {
		cfg.CurrentTime = s.Now()
	}

	_, results, err := dps.Search(cfg, text)
	if err != nil {
		return nil, err
	}

	matches := make([]DateMatch, 0, len(results))
	for _, r := range results {
		m := DateMatch{Text: r.Text}
		if !r.Date.IsZero() {
			m.Time = r.Date.Time
		} else {
			m.Raw = r.Text
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DateExtractor finds date mentions through a DateSearcher.
type DateExtractor struct {
	searcher DateSearcher
	logger   *slog.Logger
}

// NewDateExtractor creates an extractor backed by searcher.
func NewDateExtractor(searcher DateSearcher) *DateExtractor {
	return &DateExtractor{
		searcher: searcher,
		logger:   slog.Default().With("component", "date-extractor"),
	}
}

// Extract returns the dates mentioned in text, in the order found.
// Languages default to DefaultLanguages. Search failures give an empty slice.
func (d *DateExtractor) Extract(ctx context.Context, text string, languages ...string) []core.DateAnnotation {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if strings.TrimSpace(text) == "" {
		return []core.DateAnnotation{}
	}

	matches, err := d.searcher.Search(ctx, text, languages)
	if err != nil {
		d.logger.Warn("date search failed", "languages", languages, "err", err)
		return []core.DateAnnotation{}
	}

	dates := make([]core.DateAnnotation, 0, len(matches))
	for _, m := range matches {
		matched := TrimDateText(m.Text)
		if matched == "" {
			continue
		}
		ann := core.DateAnnotation{Text: matched}
		if !m.Time.IsZero() {
			ann.Parsed = m.Time.Format(time.RFC3339)
		} else {
			ann.Raw = m.Raw
			if ann.Raw == "" {
				ann.Raw = matched
			}
		}
		dates = append(dates, ann)
	}
	d.logger.Debug("searched dates", "found", len(dates))
	return dates
}

// TrimDateText strips surrounding whitespace, punctuation and connector
// words from a matched date, so "on March 12, 2024." becomes "March 12, 2024".
func TrimDateText(s string) string {
	trim := func(s string) string {
		return strings.TrimFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsPunct(r)
		})
	}

	s = trim(s)
	for {
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return s
		}
		switch {
		case connectors[strings.ToLower(fields[0])]:
			s = trim(s[len(fields[0]):])
		case connectors[strings.ToLower(fields[len(fields)-1])]:
			s = trim(s[:strings.LastIndex(s, fields[len(fields)-1])])
		default:
			return s
		}
	}
}
