package parser

import (
	"strings"
	"testing"
)

func TestMarkdownDecoder_NormalisesLineEndings(t *testing.T) {
	d := &MarkdownDecoder{}
	got, err := d.Decode(strings.NewReader("\ufeff# Title\r\n\r\nBody.\r\n"), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# Title\n\nBody.\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkdownDecoder_PassesFrontMatterThrough(t *testing.T) {
	input := "---\ntitle: Start\n---\n# Start\nSome text"
	got, err := (&MarkdownDecoder{}).Decode(strings.NewReader(input), "start.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != input {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func TestMarkdownDecoder_EmptyInput(t *testing.T) {
	got, err := (&MarkdownDecoder{}).Decode(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "*parser.MarkdownDecoder"},
		{"notes.MARKDOWN", "*parser.MarkdownDecoder"},
		{"plain.txt", "*parser.TextDecoder"},
		{"table.csv", "*parser.CSVDecoder"},
		{"page.htm", "*parser.HTMLDecoder"},
		{"manual.pdf", "*parser.PDFDecoder"},
		{"report.docx", "*parser.DOCXDecoder"},
	}
	for _, tt := range tests {
		d, err := ForFile(tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if got := typeName(d); got != tt.want {
			t.Errorf("filename=%q: expected %s, got %s", tt.filename, tt.want, got)
		}
		if !IsSupportedExtension(tt.filename) {
			t.Errorf("filename=%q: expected supported extension", tt.filename)
		}
	}

	if _, err := ForFile("image.png"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
