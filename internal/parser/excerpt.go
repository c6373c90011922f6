// Package parser turns RSS description markup into plain text.
package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultExcerptLength is the rune budget for feed excerpts.
const DefaultExcerptLength = 280

// PlainText strips markup and collapses whitespace. Input that is not HTML is
// returned normalized.
func PlainText(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return collapse(markup)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return collapse(markup)
	}
	doc.Find("script, style, noscript, iframe").Remove()
	doc.Find("br, p, div, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

// Excerpt returns at most maxRunes of plain text, cut on a word boundary.
func Excerpt(markup string, maxRunes int) string {
	text := PlainText(markup)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
