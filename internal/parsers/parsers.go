// Package parsers turns raw uploaded bytes into plain
// text plus lightweight metadata, selected by source type.
package parsers

import (
	"strings"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
)

// Result is the plain text extracted from a source plus metadata useful
// for later citation display.
type Result struct {
	Text      string
	PageCount int
}

// Parser extracts text from one source format's raw bytes.
type Parser interface {
	Parse(content []byte) (*Result, error)
}

// Factory selects a Parser by source type.
type Factory struct {
	parsers map[domain.SourceType]Parser
}

func NewFactory() *Factory {
	return &Factory{
		parsers: map[domain.SourceType]Parser{
			domain.SourceTypePDF:  &PDFParser{},
			domain.SourceTypeDOCX: &DOCXParser{},
			domain.SourceTypeTXT:  &TXTParser{},
		},
	}
}

func (f *Factory) Get(sourceType domain.SourceType) (Parser, error) {
	p, ok := f.parsers[sourceType]
	if !ok {
		return nil, apperr.New(apperr.KindUnsupportedFormat, "unsupported source type: "+string(sourceType))
	}
	return p, nil
}

// MimeToSourceType maps the accepted upload content types to a
// SourceType the Factory understands.
func MimeToSourceType(mime string) (domain.SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/pdf":
		return domain.SourceTypePDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return domain.SourceTypeDOCX, nil
	case "text/plain":
		return domain.SourceTypeTXT, nil
	default:
		return "", apperr.New(apperr.KindUnsupportedFormat, "unsupported mime type: "+mime)
	}
}
