package usecase

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// DateReferenceExtractor turns article bodies into date references anchored
// to the sentence they appear in.
type DateReferenceExtractor struct {
	finder   ports.DateFinder
	splitter ports.SentenceSplitter
}

// NewDateReferenceExtractor wires the date finder with an optional sentence splitter.
func NewDateReferenceExtractor(finder ports.DateFinder, splitter ports.SentenceSplitter) *DateReferenceExtractor {
	return &DateReferenceExtractor{finder: finder, splitter: splitter}
}

// Extract strips markup from body and returns every date mention in
// discovery order. Finder errors are returned untouched.
func (e *DateReferenceExtractor) Extract(ctx context.Context, body string) ([]domain.DateReference, error) {
	text := PlainText(body)

	matches, err := e.finder.FindDates(ctx, text)
	if err != nil {
		return nil, err
	}

	var spans []ports.Span
	if e.splitter != nil && len(matches) > 0 {
		spans = e.splitter.Split(text)
	}

	refs := make([]domain.DateReference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, domain.DateReference{
			Date:          m.Date,
			ExtractedText: m.Text,
			Sentence:      sentenceAt(text, spans, m.Offset),
		})
	}
	return refs, nil
}

func sentenceAt(text string, spans []ports.Span, offset int) string {
	for _, s := range spans {
		if offset >= s.Start && offset < s.End && s.End <= len(text) {
			return strings.TrimSpace(text[s.Start:s.End])
		}
	}
	return ""
}

// PlainText renders markup as text. Images, scripts and styles are dropped;
// block elements and line breaks become newlines so sentences do not run together.
func PlainText(markup string) string {
	parent := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return markup
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Img, atom.Script, atom.Style, atom.Noscript:
			return
		case atom.Br:
			b.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Blockquote, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Figure, atom.Figcaption,
		atom.Table, atom.Tr, atom.Pre, atom.Aside, atom.Header, atom.Footer:
		return true
	}
	return false
}
