// package formatter renders playlist entries and exports channel listings (CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/template"

	"github.com/desertthunder/acegen/internal/models"
)

// Entry is the template model for one rendered playlist entry. Destination
// entry templates may reference any of its fields.
type Entry struct {
	Name       string
	Infohash   string
	Category   string
	Country    string
	Language   string
	TVGName    string
	IconURL    string
	EngineAddr string
}

// NewEntry builds the template model for a channel streamed through the
// engine at engineAddr.
func NewEntry(ch models.Channel, engineAddr string) Entry {
	return Entry{
		Name:       ch.Name,
		Infohash:   ch.Infohash,
		Category:   ch.Category,
		Country:    ch.Country,
		Language:   ch.Language,
		TVGName:    ch.TVGName(),
		IconURL:    ch.IconURL,
		EngineAddr: engineAddr,
	}
}

// EntryRenderer renders playlist entries using a destination's parsed entry
// template. A renderer is built once per destination and reused for every
// channel written to it.
type EntryRenderer struct {
	tmpl *template.Template
}

// NewEntryRenderer parses the template text into a reusable renderer.
func NewEntryRenderer(text string) (*EntryRenderer, error) {
	tmpl, err := template.New("entry").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry template: %w", err)
	}
	return &EntryRenderer{tmpl: tmpl}, nil
}

// Render writes the rendered entry to w.
func (r *EntryRenderer) Render(w io.Writer, entry Entry) error {
	if err := r.tmpl.Execute(w, entry); err != nil {
		return fmt.Errorf("failed to render entry: %w", err)
	}
	return nil
}

// ValidateEntryTemplate parses text and test-renders it against an empty
// Entry so that unknown fields surface at configuration time instead of
// mid-cycle.
func ValidateEntryTemplate(text string) error {
	renderer, err := NewEntryRenderer(text)
	if err != nil {
		return err
	}
	return renderer.Render(io.Discard, Entry{})
}

// ExportToCSV converts a channel listing to CSV format with columns: Name, Infohash, Category, Country, Language, Status, Availability
func ExportToCSV(channels []models.Channel) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Name", "Infohash", "Category", "Country", "Language", "Status", "Availability"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ch := range channels {
		record := []string{
			ch.Name,
			ch.Infohash,
			ch.Category,
			ch.Country,
			ch.Language,
			strconv.Itoa(ch.Status),
			strconv.FormatFloat(ch.Availability, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a channel listing to plain text format
func ExportToText(channels []models.Channel) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Channels: %d\n\n", len(channels)))
	for i, ch := range channels {
		category := ch.Category
		if category == "" {
			category = "-"
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s (availability %.2f)\n", i+1, category, ch.Name, ch.Availability))
	}

	return buf.Bytes()
}
