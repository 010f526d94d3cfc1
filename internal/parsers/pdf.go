package parsers

import (
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/relayforge/knowbase/internal/apperr"
)

// PDFParser extracts per-page text via MuPDF bindings. go-fitz only opens
// from a file path, so the bytes handed in are spilled to a scratch file
// for the duration of the parse.
type PDFParser struct{}

func (p *PDFParser) Parse(content []byte) (*Result, error) {
	if len(content) == 0 {
		return nil, apperr.New(apperr.KindEmptyContent, "pdf content is empty")
	}

	tmp, err := os.CreateTemp("", "knowbase-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptInput, "failed to open pdf", err)
	}
	defer doc.Close()

	var parts []string
	pageCount := doc.NumPage()
	for i := 0; i < pageCount; i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, "\n\n")
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.KindEmptyContent, "pdf contains no extractable text")
	}

	return &Result{Text: text, PageCount: pageCount}, nil
}
