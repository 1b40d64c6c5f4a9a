package document

import (
	"fmt"
	"strconv"
)

// Document is one logical page of loaded source text.
type Document struct {
	Source string // Path of the file the page came from
	Page   int    // Page or section number, 0-based
	Title  string // Display title (file name, heading, "Rows 2-21")
	Text   string
}

// Chunk is a sized text segment cut from a Document, ready for embedding.
type Chunk struct {
	Text   string
	Source string
	Page   int
	Index  int    // Position within its (Source, Page) run
	ID     string // "source:page:index", set by chunker.AssignIDs
}

// PageKey identifies the page a chunk belongs to.
func (c Chunk) PageKey() string {
	return c.Source + ":" + strconv.Itoa(c.Page)
}

// FormatID renders a chunk identity string.
func FormatID(source string, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", source, page, index)
}
