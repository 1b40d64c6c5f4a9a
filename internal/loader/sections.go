package loader

import (
	"strings"

	"github.com/dgallion1/docchat/internal/document"
)

// sectionLevel is the deepest heading level that starts a new page for
// formats without real pagination. Deeper headings stay inline.
const sectionLevel = 2

// sectionBuilder accumulates heading-delimited sections and numbers the
// non-empty ones as pages.
type sectionBuilder struct {
	source string
	title  string
	parts  []string
	docs   []document.Document
}

func newSectionBuilder(source, title string) *sectionBuilder {
	return &sectionBuilder{source: source, title: title}
}

func (b *sectionBuilder) heading(level int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if level <= sectionLevel {
		b.flush()
		b.title = text
	}
	b.parts = append(b.parts, text)
}

func (b *sectionBuilder) text(t string) {
	if t = strings.TrimSpace(t); t != "" {
		b.parts = append(b.parts, t)
	}
}

func (b *sectionBuilder) flush() {
	body := strings.Join(b.parts, "\n\n")
	b.parts = nil
	if strings.TrimSpace(body) == "" {
		return
	}
	b.docs = append(b.docs, document.Document{
		Source: b.source,
		Page:   len(b.docs),
		Title:  b.title,
		Text:   body,
	})
}

func (b *sectionBuilder) documents() []document.Document {
	b.flush()
	return b.docs
}
