package chunker

import "github.com/dgallion1/docchat/internal/document"

// AssignIDs numbers chunks within each run of identical (source, page)
// keys and sets their "source:page:index" ids. The counter restarts on
// every key change, including a return to a page seen earlier, so input
// order must be exactly the order Split produced.
func AssignIDs(chunks []document.Chunk) []document.Chunk {
	out := make([]document.Chunk, len(chunks))

	lastKey := ""
	index := 0
	for i, c := range chunks {
		key := c.PageKey()
		if i > 0 && key == lastKey {
			index++
		} else {
			index = 0
		}
		lastKey = key

		c.Index = index
		c.ID = document.FormatID(c.Source, c.Page, index)
		out[i] = c
	}
	return out
}
