// Package extract implements structured extraction over fetched bodies:
// CSS-selector based text and attribute pulls, backed by goquery. All
// operations are local and synchronous; nothing here touches the
// network.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SelectorError reports a CSS selector that failed to compile.
type SelectorError struct {
	Selector string
	Err      error
}

// Error implements the error interface.
func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SelectorError) Unwrap() error {
	return e.Err
}

// Select returns the concatenated text content of every node in html
// matching selector, in document order.
func Select(html, selector string) ([]string, error) {
	doc, matcher, err := parse(html, selector)
	if err != nil {
		return nil, err
	}

	var out []string
	doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})

	return out, nil
}

// SelectAttr returns the value of the named attribute for every node in
// html matching selector, in document order. Nodes lacking the
// attribute are skipped, not reported as errors.
func SelectAttr(html, selector, attr string) ([]string, error) {
	doc, matcher, err := parse(html, selector)
	if err != nil {
		return nil, err
	}

	var out []string
	doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		if val, ok := s.Attr(attr); ok {
			out = append(out, val)
		}
	})

	return out, nil
}

// parse builds the document and compiles the selector. goquery's own
// Find panics on bad selectors, so compilation goes through cascadia
// directly to surface a SelectorError instead.
func parse(html, selector string) (*goquery.Document, cascadia.Selector, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, nil, &SelectorError{Selector: selector, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, matcher, nil
}
