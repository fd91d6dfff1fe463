package symbols

import (
	"encoding/json"
	"fmt"
	"io"
)

// Listing is one record of a FinnHub symbol listing.
type Listing struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
}

// Transform converts a FinnHub listing (a JSON array) into directory entries.
// The label is "displaySymbol | description", or just the display symbol
// when there is no description.
func Transform(r io.Reader) ([]Entry, error) {
	var listings []Listing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	entries := make([]Entry, 0, len(listings))
	for _, l := range listings {
		text := l.DisplaySymbol
		if l.Description != "" {
			text += " | " + l.Description
		}
		entries = append(entries, Entry{Value: l.Symbol, Text: text})
	}
	return entries, nil
}

// WriteEntries writes entries as an indented JSON array.
func WriteEntries(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return nil
}
