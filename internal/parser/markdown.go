package parser

import (
	"io"
	"strings"
)

// MarkdownDecoder passes markdown through, normalising line endings and
// dropping a UTF-8 byte order mark.
type MarkdownDecoder struct{}

func (d *MarkdownDecoder) Decode(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s := strings.TrimPrefix(string(src), "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s, nil
}
