package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchat/internal/document"
)

// Config controls chunking behavior. Sizes are in characters.
type Config struct {
	ChunkSize    int // Maximum chunk length.
	ChunkOverlap int // Trailing text carried into the next chunk.
}

// DefaultConfig returns the 800/80 split used for indexing.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    800,
		ChunkOverlap: 80,
	}
}

func (c Config) normalized() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 800
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	return c
}

// sentenceSep marks the sentence level in the separator list; it is
// handled by splitSentences rather than strings.Split.
const sentenceSep = "\x00sentence"

// separators are tried in order: paragraph, line, sentence, word.
// Anything still too long after the word level is cut by length.
var separators = []string{"\n\n", "\n", sentenceSep, " "}

// Split cuts each document into overlapping chunks, preserving document
// order. Chunk ids are not set; run AssignIDs on the result.
func Split(docs []document.Document, cfg Config) []document.Chunk {
	cfg = cfg.normalized()

	var chunks []document.Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		for _, part := range SplitText(doc.Text, cfg) {
			chunks = append(chunks, document.Chunk{
				Text:   part,
				Source: doc.Source,
				Page:   doc.Page,
			})
		}
	}
	return chunks
}

// SplitText splits a single text into pieces no longer than cfg.ChunkSize.
func SplitText(text string, cfg Config) []string {
	cfg = cfg.normalized()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= cfg.ChunkSize {
		return []string{text}
	}
	return splitRecursive(text, separators, cfg)
}

// splitRecursive splits on the coarsest separator present in text, merges
// the pieces that fit and recurses into the ones that don't.
func splitRecursive(text string, seps []string, cfg Config) []string {
	level := -1
	for i, sep := range seps {
		if sep == sentenceSep || strings.Contains(text, sep) {
			level = i
			break
		}
	}
	if level < 0 {
		return hardSplit(text, cfg)
	}

	sep := seps[level]
	rest := seps[level+1:]
	pieces, joiner := splitOn(text, sep)

	var result []string
	var fitting []string
	for _, piece := range pieces {
		if runeLen(piece) <= cfg.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}
		// Flush what fits before descending into the oversized piece.
		if len(fitting) > 0 {
			result = append(result, mergePieces(fitting, joiner, cfg)...)
			fitting = nil
		}
		if len(rest) == 0 {
			result = append(result, hardSplit(piece, cfg)...)
		} else {
			result = append(result, splitRecursive(piece, rest, cfg)...)
		}
	}
	if len(fitting) > 0 {
		result = append(result, mergePieces(fitting, joiner, cfg)...)
	}
	return result
}

// splitOn returns the non-empty pieces of text and the string used to
// glue them back together.
func splitOn(text, sep string) ([]string, string) {
	if sep == sentenceSep {
		return splitSentences(text), " "
	}
	var pieces []string
	for _, p := range strings.Split(text, sep) {
		if strings.TrimSpace(p) != "" {
			pieces = append(pieces, strings.TrimSpace(p))
		}
	}
	return pieces, sep
}

// mergePieces greedily packs pieces into chunks of at most cfg.ChunkSize,
// starting each new chunk with up to cfg.ChunkOverlap characters of
// trailing pieces from the previous one.
func mergePieces(pieces []string, joiner string, cfg Config) []string {
	joinLen := runeLen(joiner)

	var result []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		sepLen := 0
		if len(window) > 0 {
			sepLen = joinLen
		}

		if total+sepLen+n > cfg.ChunkSize && len(window) > 0 {
			result = appendChunk(result, strings.Join(window, joiner))

			// Drop leading pieces until the remainder is a valid overlap
			// and the new piece fits behind it.
			for len(window) > 0 {
				if total <= cfg.ChunkOverlap && total+joinLen+n <= cfg.ChunkSize {
					break
				}
				total -= runeLen(window[0])
				if len(window) > 1 {
					total -= joinLen
				}
				window = window[1:]
			}
		}

		if len(window) > 0 {
			total += joinLen
		}
		window = append(window, piece)
		total += n
	}

	if len(window) > 0 {
		result = appendChunk(result, strings.Join(window, joiner))
	}
	return result
}

func appendChunk(result []string, chunk string) []string {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return result
	}
	return append(result, chunk)
}

// hardSplit cuts text into fixed-length windows that overlap by
// cfg.ChunkOverlap characters.
func hardSplit(text string, cfg Config) []string {
	runes := []rune(text)
	step := cfg.ChunkSize - cfg.ChunkOverlap
	if step <= 0 {
		step = cfg.ChunkSize
	}

	var result []string
	for start := 0; start < len(runes); start += step {
		end := min(start+cfg.ChunkSize, len(runes))
		result = appendChunk(result, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return result
}

// splitSentences does basic sentence splitting, keeping terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
