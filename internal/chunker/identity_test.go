package chunker

import (
	"testing"

	"github.com/dgallion1/docchat/internal/document"
)

func TestAssignIDs_PageReset(t *testing.T) {
	chunks := []document.Chunk{
		{Source: "docA", Page: 1, Text: "one"},
		{Source: "docA", Page: 1, Text: "two"},
		{Source: "docA", Page: 2, Text: "three"},
		{Source: "docA", Page: 1, Text: "four"},
	}

	got := AssignIDs(chunks)

	want := []string{"docA:1:0", "docA:1:1", "docA:2:0", "docA:1:0"}
	for i, w := range want {
		if got[i].ID != w {
			t.Errorf("chunk %d: expected id %q, got %q", i, w, got[i].ID)
		}
	}
	if got[1].Index != 1 {
		t.Errorf("expected index 1 for second chunk, got %d", got[1].Index)
	}
}

func TestAssignIDs_SourceChangeResets(t *testing.T) {
	chunks := []document.Chunk{
		{Source: "data/a.pdf", Page: 0},
		{Source: "data/a.pdf", Page: 0},
		{Source: "data/b.pdf", Page: 0},
	}

	got := AssignIDs(chunks)

	tests := []struct {
		idx  int
		want string
	}{
		{0, "data/a.pdf:0:0"},
		{1, "data/a.pdf:0:1"},
		{2, "data/b.pdf:0:0"},
	}
	for _, tt := range tests {
		if got[tt.idx].ID != tt.want {
			t.Errorf("chunk %d: expected %q, got %q", tt.idx, tt.want, got[tt.idx].ID)
		}
	}
}

func TestAssignIDs_DoesNotMutateInput(t *testing.T) {
	chunks := []document.Chunk{{Source: "a", Page: 3}}

	_ = AssignIDs(chunks)

	if chunks[0].ID != "" {
		t.Errorf("expected input chunk id untouched, got %q", chunks[0].ID)
	}
}

func TestAssignIDs_Empty(t *testing.T) {
	if got := AssignIDs(nil); len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
}
