// Package parser extracts outage intervals and live countdowns from the schedule page.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page holds the raw content of a fetched page and, if it could be parsed, its document tree.
type Page struct {
	Raw string
	Doc *goquery.Document
}

// NewPage parses raw. If raw can't be parsed as markup, the page only holds the raw text.
func NewPage(raw string) *Page {
	p := Page{Raw: raw}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		p.Doc = doc
	}
	return &p
}

// Text returns the flattened text of the page, with all whitespace collapsed to single spaces.
func (p *Page) Text() string {
	if p.Doc == nil {
		return strings.Join(strings.Fields(p.Raw), " ")
	}
	return textOf(p.Doc.Selection)
}

// textOf returns the text of a selection. Unlike Selection.Text, adjacent elements are separated by a space.
func textOf(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}
