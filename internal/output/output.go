// Package output renders list/describe/check results as a colored
// terminal table, JSON, or YAML. Grounded on the teacher's
// internal/infrastructure/output.FormatterFactory shape (format name ->
// io.Writer-backed formatter), narrowed to the three formats SPEC_FULL's
// CLI surface actually uses.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
)

// Formatter renders a table (Write) or a structured value (WriteValue).
// Table-oriented commands (list, check) call Write; describe --json/--yaml
// calls WriteValue directly against the typed struct it already has.
type Formatter interface {
	Write(headers []string, rows [][]string) error
	WriteValue(v any) error
}

// Options controls color and format selection.
type Options struct {
	// NoColor forces color off regardless of TTY detection, set by
	// --no-color or the NO_COLOR environment variable.
	NoColor bool
}

// New returns a Formatter for format ("table", "json", or "yaml")
// writing to w.
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch format {
	case "", "table":
		return &tableFormatter{w: w, color: shouldColor(w, opts)}, nil
	case "json":
		return &jsonFormatter{w: w}, nil
	case "yaml":
		return &yamlFormatter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
	}
}

// shouldColor decides whether the table formatter emits ANSI color:
// never when NoColor is set or NO_COLOR is present, only when w is a
// terminal otherwise (so piping `weaver list` to a file stays plain).
func shouldColor(w io.Writer, opts Options) bool {
	if opts.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type tableFormatter struct {
	w     io.Writer
	color bool
}

func (t *tableFormatter) Write(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)

	headerLine := joinTabbed(headers)
	if t.color {
		headerLine = color.New(color.Bold).Sprint(headerLine)
	}
	if _, err := fmt.Fprintln(tw, headerLine); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, joinTabbed(row)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (t *tableFormatter) WriteValue(v any) error {
	return fmt.Errorf("table format does not support structured values; use --json or --yaml")
}

func joinTabbed(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += "\t"
		}
		out += c
	}
	return out
}

type jsonFormatter struct{ w io.Writer }

func (j *jsonFormatter) Write(headers []string, rows [][]string) error {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return j.WriteValue(records)
}

func (j *jsonFormatter) WriteValue(v any) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type yamlFormatter struct{ w io.Writer }

func (y *yamlFormatter) Write(headers []string, rows [][]string) error {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return y.WriteValue(records)
}

func (y *yamlFormatter) WriteValue(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = y.w.Write(data)
	return err
}
