package executor

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat is a result rendering format.
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatYAML     OutputFormat = "yaml"
	FormatMarkdown OutputFormat = "markdown"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatJSON, FormatCSV, FormatYAML, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidOutputFormat, s)
	}
}

// Formatter writes query results.
type Formatter struct {
	format OutputFormat
}

// NewFormatter creates a Formatter for format.
func NewFormatter(format OutputFormat) *Formatter {
	return &Formatter{format: format}
}

// Format writes result to output.
func (f *Formatter) Format(result *QueryResult, output io.Writer) error {
	switch f.format {
	case FormatTable:
		return f.formatAsTable(result, output, false)
	case FormatMarkdown:
		return f.formatAsTable(result, output, true)
	case FormatJSON:
		return writeJSON(output, newResultDocument(result))
	case FormatCSV:
		return f.formatAsCSV(result, output)
	case FormatYAML:
		return writeYAML(output, newResultDocument(result))
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutputFormat, f.format)
	}
}

// FormatExec writes a one line summary of an ExecResult.
func (f *Formatter) FormatExec(result *ExecResult, output io.Writer) error {
	summary := map[string]any{
		"rows_affected": result.RowsAffected,
		"duration":      result.Duration.String(),
	}

	switch f.format {
	case FormatJSON:
		return writeJSON(output, summary)
	case FormatYAML:
		return writeYAML(output, summary)
	default:
		_, err := fmt.Fprintf(output, "%d rows affected (Time: %v)\n", result.RowsAffected, result.Duration)
		return err
	}
}

func (f *Formatter) formatAsTable(result *QueryResult, output io.Writer, markdown bool) error {
	if len(result.Rows) == 0 {
		_, err := fmt.Fprintln(output, "No results")
		return err
	}

	table := tablewriter.NewWriter(output)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(result.Columns)

	if markdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}

	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, val := range row {
			cells[i] = formatValue(val)
		}

		table.Append(cells)
	}

	table.Render()

	footer := fmt.Sprintf("%d rows, Time: %v", result.Count, result.Duration)
	if result.Truncated {
		footer += " (truncated)"
	}

	if markdown {
		footer = "\n<!-- " + footer + " -->"
	}

	_, err := fmt.Fprintln(output, footer)

	return err
}

// resultDocument is the JSON and YAML shape of a QueryResult.
type resultDocument struct {
	Data      []map[string]any `json:"data" yaml:"data"`
	Count     int              `json:"count" yaml:"count"`
	Truncated bool             `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Duration  string           `json:"duration" yaml:"duration"`
}

func newResultDocument(result *QueryResult) resultDocument {
	data := make([]map[string]any, 0, len(result.Rows))

	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}

		data = append(data, record)
	}

	return resultDocument{
		Data:      data,
		Count:     result.Count,
		Truncated: result.Truncated,
		Duration:  result.Duration.String(),
	}
}

func (f *Formatter) formatAsCSV(result *QueryResult, output io.Writer) error {
	writer := csv.NewWriter(output)

	if err := writer.Write(result.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range result.Rows {
		values := make([]string, len(row))
		for i, val := range row {
			values[i] = formatValue(val)
		}

		if err := writer.Write(values); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}

func writeJSON(output io.Writer, v any) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func writeYAML(output io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal results to YAML: %w", err)
	}

	_, err = output.Write(data)

	return err
}

func formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
