package chunker

import (
	"strings"

	"github.com/dgallion1/docchat/internal/document"
)

// EstimateTokens gives a rough token count from the word count.
// Only used for reporting; splitting is done on characters.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per English word.
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// TotalTokens sums EstimateTokens over a chunk set.
func TotalTokens(chunks []document.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Text)
	}
	return total
}
