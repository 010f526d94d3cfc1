// Package chunker packs extracted text into overlapping,
// token-budgeted chunks with heading extraction.
package chunker

import (
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/relayforge/knowbase/internal/tokenizer"
)

const (
	targetTokens  = 800
	minTokens     = 100
	maxTokens     = 1200
	overlapTokens = 100
)

var (
	markdownHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	allCapsLineRe     = regexp.MustCompile(`(?m)^[A-Z0-9][A-Z0-9 \-/&:]{2,60}$`)
)

// Chunk is one packed slice of sentences. CharStart/CharEnd are byte
// offsets into the source text that was chunked, covering the overlap
// tail carried in from the previous chunk through the last sentence
// newly packed into this one.
type Chunk struct {
	Text       string
	Heading    string
	TokenCount int
	CharStart  int
	CharEnd    int
}

type Chunker struct {
	tokenCounter *tokenizer.Counter
	model        string
}

func New(tokenCounter *tokenizer.Counter, model string) *Chunker {
	return &Chunker{tokenCounter: tokenCounter, model: model}
}

// sentenceSpan pairs a sentence's text with its byte offsets in the
// original source text.
type sentenceSpan struct {
	Text  string
	Start int
	End   int
}

// Chunk splits into sentences, greedily packs up to the target (past it
// only while the pack is below the minimum, and never past the hard max),
// carries an overlap tail forward, and derives a heading per chunk.
func (c *Chunker) Chunk(text, fallbackTitle, fallbackHeading string) []Chunk {
	spans := splitSentenceSpans(text)
	if len(spans) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []sentenceSpan
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := joinSpans(current)
		heading := c.extractHeading(body, fallbackTitle, fallbackHeading)
		chunks = append(chunks, Chunk{
			Text:       body,
			Heading:    heading,
			TokenCount: currentTokens,
			CharStart:  current[0].Start,
			CharEnd:    current[len(current)-1].End,
		})
	}

	for _, span := range spans {
		sentTokens := c.tokenCounter.Count(span.Text, c.model)

		// A single sentence exceeding the hard max is emitted on its own,
		// never split mid-sentence.
		if sentTokens > maxTokens {
			flush()
			current = nil
			currentTokens = 0
			chunks = append(chunks, Chunk{
				Text:       span.Text,
				Heading:    c.extractHeading(span.Text, fallbackTitle, fallbackHeading),
				TokenCount: sentTokens,
				CharStart:  span.Start,
				CharEnd:    span.End,
			})
			continue
		}

		if currentTokens+sentTokens > maxTokens {
			flush()
			current = overlapTail(current, overlapTokens, c.tokenCounter, c.model)
			currentTokens = sumTokens(current, c.tokenCounter, c.model)
		} else if currentTokens+sentTokens > targetTokens && currentTokens >= minTokens {
			flush()
			current = overlapTail(current, overlapTokens, c.tokenCounter, c.model)
			currentTokens = sumTokens(current, c.tokenCounter, c.model)
		}

		// An overlap tail that would push this sentence past the hard max
		// is dropped rather than carried.
		if currentTokens+sentTokens > maxTokens {
			current = nil
			currentTokens = 0
		}

		current = append(current, span)
		currentTokens += sentTokens
	}

	flush()
	return chunks
}

func joinSpans(spans []sentenceSpan) string {
	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}

func sumTokens(spans []sentenceSpan, counter *tokenizer.Counter, model string) int {
	total := 0
	for _, s := range spans {
		total += counter.Count(s.Text, model)
	}
	return total
}

// splitSentenceSpans splits text into sentences and locates each one's
// byte offsets in text by scanning forward from the end of the previous
// match, so every chunk can carry an exact char_range.
func splitSentenceSpans(text string) []sentenceSpan {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var raw []string
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		raw = strings.Fields(text)
	} else {
		for _, s := range doc.Sentences() {
			trimmed := strings.TrimSpace(s.Text)
			if trimmed != "" {
				raw = append(raw, trimmed)
			}
		}
	}

	spans := make([]sentenceSpan, 0, len(raw))
	cursor := 0
	for _, sentence := range raw {
		idx := strings.Index(text[cursor:], sentence)
		var start int
		if idx == -1 {
			// Sentence text doesn't match verbatim (e.g. internal whitespace
			// was collapsed by the splitter); anchor it at the cursor so
			// ranges stay monotonic instead of failing the chunk entirely.
			start = cursor
		} else {
			start = cursor + idx
		}
		end := start + len(sentence)
		spans = append(spans, sentenceSpan{Text: sentence, Start: start, End: end})
		cursor = end
	}
	return spans
}

// overlapTail returns the trailing sentences of a flushed chunk, sized to
// fit the overlap token budget, to prepend to the next chunk.
func overlapTail(spans []sentenceSpan, budget int, counter *tokenizer.Counter, model string) []sentenceSpan {
	var tail []sentenceSpan
	tokens := 0
	for i := len(spans) - 1; i >= 0; i-- {
		t := counter.Count(spans[i].Text, model)
		if tokens+t > budget && len(tail) > 0 {
			break
		}
		tail = append([]sentenceSpan{spans[i]}, tail...)
		tokens += t
	}
	return tail
}

func (c *Chunker) extractHeading(body, fallbackTitle, fallbackHeading string) string {
	if m := markdownHeadingRe.FindStringSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if allCapsLineRe.MatchString(line) {
			return line
		}
	}
	if fallbackTitle != "" {
		return fallbackTitle
	}
	return fallbackHeading
}
