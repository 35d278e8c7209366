// Package format renders command results for the CLI.
package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"
)

// Tabular is implemented by results that can be shown as a table.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Envelope wraps every successful result so scripts can rely on a stable
// top-level shape.
type Envelope struct {
	Data any `json:"data" yaml:"data"`
	Meta any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - yaml
// - table (falls back to json for results that are not Tabular)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "yaml":
		return WriteYAML(w, v)
	case "table":
		if t, ok := unwrap(v).(Tabular); ok {
			return WriteTable(w, t)
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s (want json|yaml|table)", format)
	}
}

// WriteJSON writes strict JSON, one document per call.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteYAML writes v as YAML. Field names follow the json tags: values are
// passed through JSON first.
func WriteYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(x); err != nil {
		return err
	}
	return enc.Close()
}

func WriteTable(w io.Writer, t Tabular) error {
	tbl := uitable.New()
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	if h := t.Header(); len(h) > 0 {
		tbl.AddRow(cells(h)...)
	}
	for _, r := range t.Rows() {
		tbl.AddRow(cells(r)...)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func unwrap(v any) any {
	switch e := v.(type) {
	case Envelope:
		return e.Data
	case *Envelope:
		return e.Data
	}
	return v
}

func cells(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
