package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Selector extracts the text of the first element matching a CSS selector.
type Selector struct {
	selector string
}

// NewSelector builds a Selector. Invalid selectors simply never match.
func NewSelector(selector string) *Selector {
	return &Selector{selector: selector}
}

// Extract parses body and classifies the first matching element's text.
func (s *Selector) Extract(body []byte, marker string) checker.ExtractionResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return classify("", false, marker)
	}
	sel := doc.Find(s.selector).First()
	if sel.Length() == 0 {
		return classify("", false, marker)
	}
	return classify(sel.Text(), true, marker)
}
