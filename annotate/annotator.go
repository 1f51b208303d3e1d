package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/poiesic/ragprep/core"
)

// Annotator runs entity and date extraction over the same text.
type Annotator struct {
	entities  *EntityExtractor
	dates     *DateExtractor
	languages []string
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLanguages sets the languages passed to the date extractor.
func WithLanguages(languages ...string) Option {
	return func(a *Annotator) {
		a.languages = languages
	}
}

// NewAnnotator composes the two extractors.
func NewAnnotator(entities *EntityExtractor, dates *DateExtractor, opts ...Option) *Annotator {
	a := &Annotator{
		entities: entities,
		dates:    dates,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate extracts entities, then dates, and returns both.
func (a *Annotator) Annotate(ctx context.Context, text string) core.Summary {
	return core.Summary{
		Entities: a.entities.Extract(ctx, text),
		Dates:    a.dates.Extract(ctx, text, a.languages...),
	}
}

// Render writes the console report for text and its summary: the text,
// one JSON line per entity, one per date, then the combined summary.
func Render(w io.Writer, text string, summary core.Summary) error {
	p := &printer{w: w}

	p.println("TEXT:")
	p.println(text)

	p.println("\n--- NER (Transformer) ---")
	for _, e := range summary.Entities {
		p.json(e)
	}

	p.println("\n--- Dates (dateparser) ---")
	if len(summary.Dates) == 0 {
		p.println("No dates detected.")
	}
	for _, d := range summary.Dates {
		p.json(d)
	}

	p.println("\n--- Combined summary ---")
	p.json(summary)
	return p.err
}

// printer keeps the first write error so Render can check it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) println(s string) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, s)
	}
}

func (p *printer) json(v any) {
	if p.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		p.err = err
		return
	}
	p.println(string(b))
}
