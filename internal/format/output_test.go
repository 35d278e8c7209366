package format

import (
	"bytes"
	"strings"
	"testing"
)

type rowsResult struct {
	Names []string `json:"names"`
}

func (r rowsResult) Header() []string { return []string{"#", "NAME"} }

func (r rowsResult) Rows() [][]string {
	out := make([][]string, 0, len(r.Names))
	for i, n := range r.Names {
		out = append(out, []string{string(rune('0' + i)), n})
	}
	return out
}

func TestWrite(t *testing.T) {
	t.Parallel()
	v := Envelope{Data: rowsResult{Names: []string{"alpha", "beta"}}}

	cases := []struct {
		format string
		want   []string
	}{
		{"", []string{`{"data":{"names":["alpha","beta"]}}`}},
		{"json", []string{`{"data":{"names":["alpha","beta"]}}`}},
		{"yaml", []string{"data:", "names:", "- alpha", "- beta"}},
		{"table", []string{"NAME", "0", "alpha", "beta"}},
	}
	for _, tc := range cases {
		t.Run("format="+tc.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := Write(&buf, v, tc.format, false); err != nil {
				t.Fatalf("write: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(buf.String(), w) {
					t.Fatalf("output %q missing %q", buf.String(), w)
				}
			}
		})
	}
}

func TestWrite_TableFallsBackToJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: map[string]int{"n": 1}}, "table", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `"n": 1`) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"a": 1}, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
