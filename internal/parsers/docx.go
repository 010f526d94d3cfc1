package parsers

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/relayforge/knowbase/internal/apperr"
)

var docxTagStripper = regexp.MustCompile(`<[^>]+>`)

// DOCXParser extracts the document body text via nguyenthenguyen/docx,
// which returns the body as a flat XML-tagged string we strip down to
// paragraphs.
type DOCXParser struct{}

func (p *DOCXParser) Parse(content []byte) (*Result, error) {
	if len(content) == 0 {
		return nil, apperr.New(apperr.KindEmptyContent, "docx content is empty")
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptInput, "failed to open docx", err)
	}
	defer reader.Close()

	raw := reader.Editable().GetContent()
	text := docxTagStripper.ReplaceAllString(raw, "\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, apperr.New(apperr.KindEmptyContent, "docx contains no extractable text")
	}

	paragraphs := strings.Count(text, "\n") + 1
	return &Result{Text: text, PageCount: paragraphs}, nil
}
