// Package output renders command results as aligned tables or JSON.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format represents supported output formats
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"

	// tabwriterPadding is the padding between columns in table output
	tabwriterPadding = 2
)

// Formatter handles output formatting for command results
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatterWithWriter creates a new output formatter writing to w.
// Defaults to table format if invalid format provided
func NewFormatterWithWriter(w io.Writer, format string) *Formatter {
	f := Format(format)
	if f != FormatTable && f != FormatJSON {
		f = FormatTable
	}
	return &Formatter{
		writer: w,
		format: f,
	}
}

// Table represents a table with headers and rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// Field is a single labelled value of a detail view
type Field struct {
	// Label is shown in table format
	Label string
	// Key is used in JSON format
	Key   string
	Value interface{}
}

// PrintTable prints rows in the configured format (table or json)
func (f *Formatter) PrintTable(table Table) error {
	if len(table.Rows) == 0 {
		if f.format == FormatJSON {
			return f.printJSON([]map[string]string{})
		}
		_, err := fmt.Fprintln(f.writer, "No data found")
		return err
	}

	if f.format == FormatJSON {
		return f.printJSON(tableToMaps(table))
	}
	return f.printTable(table)
}

// PrintDetails prints labelled values, one per line in table format or as a
// single object in JSON format
func (f *Formatter) PrintDetails(fields []Field) error {
	if f.format == FormatJSON {
		obj := make(map[string]interface{}, len(fields))
		for _, field := range fields {
			obj[field.Key] = field.Value
		}
		return f.printJSON(obj)
	}

	w := tabwriter.NewWriter(f.writer, 0, 0, tabwriterPadding, ' ', 0)
	for _, field := range fields {
		fmt.Fprintf(w, "%s:\t%v\n", field.Label, field.Value)
	}
	return w.Flush()
}

// PrintRaw pretty prints a JSON document received from Elasticsearch. The
// document is printed as JSON in both formats.
func (f *Formatter) PrintRaw(data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(f.writer)
	return err
}

// printTable prints data in table format using tabwriter
func (f *Formatter) printTable(table Table) error {
	w := tabwriter.NewWriter(f.writer, 0, 0, tabwriterPadding, ' ', 0)

	fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

// printJSON prints data in JSON format
func (f *Formatter) printJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// tableToMaps converts a Table to a slice of maps for JSON output
func tableToMaps(table Table) []map[string]string {
	result := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		item := make(map[string]string)
		for i, header := range table.Headers {
			if i < len(row) {
				item[header] = row[i]
			}
		}
		result = append(result, item)
	}
	return result
}

// PrintMessage prints a simple message (only in table format, ignored in JSON)
func (f *Formatter) PrintMessage(message string) {
	if f.format == FormatTable {
		fmt.Fprintln(f.writer, message)
	}
}
