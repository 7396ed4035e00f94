// Package sentences detects sentence boundaries with the Punkt English model.
package sentences

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"BrokenPromises/internal/ports"
)

// monthAbbrev matches a sentence ending in an abbreviated month, as in "Mar.".
var monthAbbrev = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.$`)

// PunktSplitter wraps a trained Punkt tokenizer.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

var _ ports.SentenceSplitter = (*PunktSplitter)(nil)

// NewEnglish loads the bundled English model.
func NewEnglish() (*PunktSplitter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load punkt english model: %w", err)
	}
	return &PunktSplitter{tokenizer: tokenizer}, nil
}

// Split returns the byte span of every sentence in order, with surrounding
// whitespace trimmed. A break right after an abbreviated month followed by a
// number is not a sentence boundary.
func (p *PunktSplitter) Split(text string) []ports.Span {
	var (
		spans  []ports.Span
		cursor int
	)
	for _, sentence := range p.tokenizer.Tokenize(text) {
		start, end, ok := locate(text, sentence, cursor)
		if !ok {
			continue
		}
		cursor = end

		if n := len(spans); n > 0 && continuesDate(text, spans[n-1], start) {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, ports.Span{Start: start, End: end})
	}
	return spans
}

// locate resolves the sentence's byte range in text, trusting the tokenizer's
// positions when they agree with its text.
func locate(text string, sentence *sentences.Sentence, cursor int) (int, int, bool) {
	start, end := sentence.Start, sentence.End
	if start < cursor || end > len(text) || start > end || text[start:end] != sentence.Text {
		chunk := strings.TrimSpace(sentence.Text)
		if chunk == "" {
			return 0, 0, false
		}
		idx := strings.Index(text[cursor:], chunk)
		if idx < 0 {
			return 0, 0, false
		}
		start = cursor + idx
		end = start + len(chunk)
	}

	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end, start < end
}

func continuesDate(text string, prev ports.Span, next int) bool {
	if !monthAbbrev.MatchString(text[prev.Start:prev.End]) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[next:])
	return unicode.IsDigit(r)
}
