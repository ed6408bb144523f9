// Package presentation renders routing results, navigation outcomes and
// history entries for the command line.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format string
	docs   int
}

// NewFormatter creates a new formatter. An empty format selects JSON.
func NewFormatter(writer io.Writer, format string) (*Formatter, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return &Formatter{writer: writer, format: format}, nil
}

// Format writes v as one document. Consecutive YAML documents are
// separated by "---".
func (f *Formatter) Format(v any) error {
	defer func() { f.docs++ }()

	if f.format == FormatJSON {
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}

	if f.docs > 0 {
		if _, err := io.WriteString(f.writer, "---\n"); err != nil {
			return err
		}
	}
	encoder := yaml.NewEncoder(f.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// FormatResults formats routing results.
func (f *Formatter) FormatResults(results []ResultDTO) error {
	return f.Format(results)
}

// FormatOutcome formats one navigation outcome.
func (f *Formatter) FormatOutcome(o OutcomeDTO) error {
	return f.Format(o)
}

// FormatHistory formats history entries.
func (f *Formatter) FormatHistory(entries []HistoryEntryDTO) error {
	return f.Format(entries)
}
