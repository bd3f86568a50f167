package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVDecoder renders a CSV file as a GFM table. The first row is the header.
type CSVDecoder struct{}

func (d *CSVDecoder) Decode(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	var sb strings.Builder
	writeRow(&sb, headers, len(headers))
	sb.WriteString("|")
	for range headers {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range records[1:] {
		writeRow(&sb, row, len(headers))
	}
	return sb.String(), nil
}

// writeRow writes exactly width cells, padding or truncating row.
func writeRow(sb *strings.Builder, row []string, width int) {
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = escapeCell(row[i])
		}
		sb.WriteString(" " + cell + " |")
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
