package loader

import (
	"strings"
	"testing"
)

func TestTextParser_NormalizesParagraphs(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\n\n\nSecond paragraph.\n   \nThird paragraph."
	p := &TextParser{}
	docs, err := p.Parse(strings.NewReader(input), "data/notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("expected 1 page, got %d", len(docs))
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if docs[0].Text != want {
		t.Errorf("expected %q, got %q", want, docs[0].Text)
	}
	if docs[0].Source != "data/notes.txt" {
		t.Errorf("expected source %q, got %q", "data/notes.txt", docs[0].Source)
	}
	if docs[0].Page != 0 {
		t.Errorf("expected page 0, got %d", docs[0].Page)
	}
	if docs[0].Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", docs[0].Title)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	docs, err := p.Parse(strings.NewReader("\n  \n"), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected 0 pages for blank input, got %d", len(docs))
	}
}

func TestTextParser_SingleLine(t *testing.T) {
	p := &TextParser{}
	docs, err := p.Parse(strings.NewReader("Hello world"), "single.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "Hello world" {
		t.Fatalf("expected single page %q, got %+v", "Hello world", docs)
	}
}
