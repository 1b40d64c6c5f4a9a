package loader

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docchat/internal/document"
)

// TextParser handles plain text files as a single page. Runs of blank
// lines are normalised to one paragraph break.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, source string) ([]document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(paragraphs) == 0 {
		return nil, nil
	}
	return []document.Document{{
		Source: source,
		Page:   0,
		Title:  baseTitle(source),
		Text:   strings.Join(paragraphs, "\n\n"),
	}}, nil
}
