package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docchat/internal/document"
)

// csvRowsPerPage is how many data rows go into one page document.
const csvRowsPerPage = 20

// CSVParser handles CSV files. The first row is the header; data rows are
// rendered as "header: value" pairs, csvRowsPerPage rows per page.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, source string) ([]document.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	rows := records[1:]

	var docs []document.Document
	for start := 0; start < len(rows); start += csvRowsPerPage {
		end := min(start+csvRowsPerPage, len(rows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range rows[start:end] {
			cells := make([]string, len(row))
			for j, cell := range row {
				if j < len(headers) {
					cells[j] = headers[j] + ": " + cell
				} else {
					cells[j] = cell
				}
			}
			text.WriteString(strings.Join(cells, ", "))
			text.WriteString("\n")
		}

		docs = append(docs, document.Document{
			Source: source,
			Page:   len(docs),
			Title:  fmt.Sprintf("Rows %d-%d", start+2, end+1), // 1-indexed, header is row 1
			Text:   strings.TrimSpace(text.String()),
		})
	}
	return docs, nil
}
