// Package parser turns raw feed documents into channel metadata and items.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

// ErrParsing is matched by every *ParsingError via errors.Is.
var ErrParsing = errors.New("document is not a valid feed")

// ParsingError is returned when a document cannot be read as a feed. Raw keeps
// the offending text for diagnostics.
type ParsingError struct {
	Raw string
	Err error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("failed to parse feed document: %v", e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

func (e *ParsingError) Is(target error) bool { return target == ErrParsing }

// Document is a parsed channel.
type Document struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Parse reads an RSS, Atom or JSON feed document. Items keep document order.
// Missing channel or item fields come back as empty strings.
func Parse(raw string) (*Document, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ParsingError{Raw: raw, Err: errors.New("empty document")}
	}

	if err := wellFormed(raw); err != nil {
		return nil, &ParsingError{Raw: raw, Err: err}
	}

	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, &ParsingError{Raw: raw, Err: err}
	}

	doc := &Document{
		Title:       feed.Title,
		Description: feed.Description,
		Items:       make([]Item, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		doc.Items = append(doc.Items, Item{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		})
	}

	return doc, nil
}

// wellFormed rejects XML markup the lenient gofeed tokenizer would accept,
// such as mismatched or unclosed tags. JSON feeds are left to gofeed.
func wellFormed(raw string) error {
	if !strings.HasPrefix(strings.TrimSpace(raw), "<") {
		return nil
	}

	decoder := xml.NewDecoder(strings.NewReader(raw))
	decoder.CharsetReader = charset.NewReaderLabel
	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed markup: %w", err)
		}
	}
}
