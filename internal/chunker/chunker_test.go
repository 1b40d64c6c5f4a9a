package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/docchat/internal/document"
)

func TestSplit_SmallDocumentFitsOneChunk(t *testing.T) {
	docs := []document.Document{
		{Source: "data/a.pdf", Page: 0, Text: "  " + strings.Repeat("word ", 60) + "  "},
	}

	chunks := Split(docs, DefaultConfig())

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != strings.TrimSpace(strings.Repeat("word ", 60)) {
		t.Errorf("expected trimmed text, got %q", chunks[0].Text)
	}
	if chunks[0].Source != "data/a.pdf" || chunks[0].Page != 0 {
		t.Errorf("expected source/page carried over, got %q/%d", chunks[0].Source, chunks[0].Page)
	}
}

func TestSplit_LongTextRespectsChunkSize(t *testing.T) {
	var paras []string
	for i := 0; i < 12; i++ {
		paras = append(paras, strings.Repeat("The quick brown fox jumps over the lazy dog. ", 9))
	}
	text := strings.Join(paras, "\n\n")

	chunks := Split([]document.Document{{Source: "fox.txt", Text: text}}, DefaultConfig())

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 800 {
			t.Errorf("chunk %d: %d chars exceeds 800", i, n)
		}
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitText_PrefersParagraphBoundary(t *testing.T) {
	p1 := strings.TrimSpace(strings.Repeat("alpha ", 83))
	p2 := strings.TrimSpace(strings.Repeat("beta ", 100))

	parts := SplitText(p1+"\n\n"+p2, DefaultConfig())

	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != p1 {
		t.Errorf("expected first part to be paragraph one, got %q", parts[0])
	}
	if parts[1] != p2 {
		t.Errorf("expected second part to be paragraph two, got %q", parts[1])
	}
}

func TestSplitText_SentenceBoundary(t *testing.T) {
	text := "First sentence is here. Second sentence is here. Third sentence is here."

	parts := SplitText(text, Config{ChunkSize: 50, ChunkOverlap: 0})

	want := []string{
		"First sentence is here. Second sentence is here.",
		"Third sentence is here.",
	}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d: %q", len(want), len(parts), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: expected %q, got %q", i, want[i], parts[i])
		}
	}
}

func TestSplitText_WordOverlap(t *testing.T) {
	text := "aaaa bbbb cccc dddd eeee ffff"

	parts := SplitText(text, Config{ChunkSize: 20, ChunkOverlap: 5})

	want := []string{"aaaa bbbb cccc dddd", "dddd eeee ffff"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d: %q", len(want), len(parts), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: expected %q, got %q", i, want[i], parts[i])
		}
	}
}

func TestSplitText_HardCutFallback(t *testing.T) {
	parts := SplitText(strings.Repeat("x", 2000), DefaultConfig())

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	wantLens := []int{800, 800, 560}
	for i, p := range parts {
		if len(p) != wantLens[i] {
			t.Errorf("part %d: expected %d chars, got %d", i, wantLens[i], len(p))
		}
	}
}

func TestSplitText_CountsRunesNotBytes(t *testing.T) {
	parts := SplitText(strings.Repeat("é", 900), DefaultConfig())

	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if n := utf8.RuneCountInString(parts[0]); n != 800 {
		t.Errorf("expected 800 runes in first part, got %d", n)
	}
}

func TestSplit_SkipsEmptyDocumentsAndKeepsOrder(t *testing.T) {
	docs := []document.Document{
		{Source: "a.pdf", Page: 0, Text: "page zero"},
		{Source: "a.pdf", Page: 1, Text: "   \n\n  "},
		{Source: "b.pdf", Page: 0, Text: "other file"},
	}

	chunks := Split(docs, DefaultConfig())

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Source != "a.pdf" || chunks[1].Source != "b.pdf" {
		t.Errorf("expected document order a.pdf, b.pdf; got %s, %s", chunks[0].Source, chunks[1].Source)
	}
}

func TestSplit_ZeroConfigUsesDefaults(t *testing.T) {
	docs := []document.Document{{Source: "a.txt", Text: strings.Repeat("word ", 400)}}

	chunks := Split(docs, Config{})

	if len(chunks) < 2 {
		t.Fatalf("expected default 800-char chunks to split 2000 chars, got %d chunk(s)", len(chunks))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	docs := []document.Document{
		{Source: "a.pdf", Page: 0, Text: strings.Repeat("Lorem ipsum dolor sit amet. ", 80)},
		{Source: "a.pdf", Page: 1, Text: strings.Repeat("Consectetur adipiscing elit.\n", 50)},
	}

	first := AssignIDs(Split(docs, DefaultConfig()))
	second := AssignIDs(Split(docs, DefaultConfig()))

	if len(first) != len(second) {
		t.Fatalf("expected equal chunk counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Text != second[i].Text {
			t.Errorf("chunk %d differs between runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}
