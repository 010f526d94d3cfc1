package parsers

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/relayforge/knowbase/internal/apperr"
)

// TXTParser decodes plain text, trying UTF-8 first and falling back to
// UTF-16 and Windows-1252 for files that don't carry a BOM or valid UTF-8.
type TXTParser struct{}

func (p *TXTParser) Parse(content []byte) (*Result, error) {
	if len(content) == 0 {
		return nil, apperr.New(apperr.KindEmptyContent, "txt content is empty")
	}

	text, err := decodeText(content)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptInput, "failed to decode text content", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindEmptyContent, "txt contains no text")
	}

	return &Result{Text: text}, nil
}

func decodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	if decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(content); err == nil && utf8.Valid(decoded) {
		return string(decoded), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
