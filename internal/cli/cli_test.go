package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps config discovery away from the developer's own files.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PLANNER_CONFIG", "")
	t.Setenv("PLANNER_FORMAT", "")
	t.Chdir(t.TempDir())
	return filepath.Join(t.TempDir(), "planner.sqlite")
}

type fixture struct {
	t  *testing.T
	db string
}

func (b fixture) run(args ...string) map[string]any {
	b.t.Helper()
	full := append([]string{"--db", b.db, "--columns", "2"}, args...)
	stdout, stderr, err := runCLI(b.t, full)
	if err != nil {
		b.t.Fatalf("command failed: planner %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		b.t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
	}
	if _, ok := env["data"]; !ok {
		b.t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func (b fixture) id(args ...string) string {
	b.t.Helper()
	env := b.run(args...)
	data, _ := env["data"].(map[string]any)
	id, ok := data["id"].(float64)
	if !ok {
		b.t.Fatalf("expected an id from planner %v; got %#v", args, env["data"])
	}
	return strconv.FormatInt(int64(id), 10)
}

// texts returns the item texts of list in order.
func (b fixture) texts(list string) []string {
	b.t.Helper()
	env := b.run("items", "ls", "--list", list)
	rows, _ := env["data"].([]any)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		m, _ := r.(map[string]any)
		s, _ := m["text"].(string)
		out = append(out, s)
	}
	return out
}

func TestOutputContract_JSONEnvelope(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}

	env := b.run("init")
	data := env["data"].(map[string]any)
	if data["db"] != b.db || data["columns"] != float64(2) {
		t.Fatalf("init data = %#v", data)
	}
	b.run("config")
	list := b.id("lists", "add", "--name", "Inbox")
	b.id("items", "add", "--list", list, "write", "report")
	b.run("items", "ls", "--list", list)
	b.run("lists", "ls")
}

func TestItemsNudgeRewritesDenseOrder(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}
	list := b.id("lists", "add")
	b.id("items", "add", "--list", list, "x")
	b.id("items", "add", "--list", list, "y")
	z := b.id("items", "add", "--list", list, "z")

	b.run("items", "nudge", z, "up")
	res := b.run("items", "nudge", z, "up")
	data := res["data"].(map[string]any)
	if data["index"] != float64(0) {
		t.Fatalf("nudge result = %#v", data)
	}
	if got := strings.Join(b.texts(list), ","); got != "z,x,y" {
		t.Fatalf("order = %s, want z,x,y", got)
	}
}

func TestItemsNudgePastLastListCreatesList(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}
	b.id("lists", "add", "--column", "0")
	last := b.id("lists", "add", "--column", "1")
	y := b.id("items", "add", "--list", last, "y")

	res := b.run("items", "nudge", y, "down")
	data := res["data"].(map[string]any)
	created, ok := data["created"].(map[string]any)
	if !ok {
		t.Fatalf("expected a created list; got %#v", data)
	}
	if created["columnIndex"] != float64(1) || created["order"] != float64(1) {
		t.Fatalf("created = %#v", created)
	}
	newList := strconv.FormatInt(int64(created["id"].(float64)), 10)
	if got := b.texts(newList); len(got) != 1 || got[0] != "y" {
		t.Fatalf("new list items = %v", got)
	}
	if got := b.texts(last); len(got) != 0 {
		t.Fatalf("old list items = %v", got)
	}
}

func TestListsNudgeCrossesColumns(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}
	a := b.id("lists", "add", "--column", "0")
	b.id("lists", "add", "--column", "1")

	res := b.run("lists", "nudge", a, "down")
	to := res["data"].(map[string]any)["to"].(map[string]any)
	if to["kind"] != "column" || to["id"] != float64(1) {
		t.Fatalf("to = %#v", to)
	}
}

func TestItemsMoveAndArchiveCloseGaps(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}
	from := b.id("lists", "add")
	to := b.id("lists", "add")
	x := b.id("items", "add", "--list", from, "x")
	b.id("items", "add", "--list", from, "y")
	b.id("items", "add", "--list", to, "t")

	b.run("items", "move", x, "--list", to, "--index", "0")
	if got := strings.Join(b.texts(to), ","); got != "x,t" {
		t.Fatalf("to = %s", got)
	}
	b.run("items", "archive", x)
	env := b.run("items", "ls", "--list", to)
	rows := env["data"].([]any)
	if len(rows) != 1 || rows[0].(map[string]any)["order"] != float64(0) {
		t.Fatalf("after archive = %#v", rows)
	}
}

func TestTableAndYAMLFormats(t *testing.T) {
	db := isolate(t)
	b := fixture{t: t, db: db}
	list := b.id("lists", "add", "--name", "Work")
	b.id("items", "add", "--list", list, "ship", "it")

	stdout, stderr, err := runCLI(t, []string{"--db", db, "--format", "table", "items", "ls", "--list", list})
	if err != nil {
		t.Fatalf("table: %v\n%s", err, stderr)
	}
	out := string(stdout)
	if !strings.Contains(out, "TEXT") || !strings.Contains(out, "ship it") {
		t.Fatalf("table output:\n%s", out)
	}

	stdout, stderr, err = runCLI(t, []string{"--db", db, "--format", "yaml", "lists", "ls"})
	if err != nil {
		t.Fatalf("yaml: %v\n%s", err, stderr)
	}
	var doc struct {
		Data []map[string]any `yaml:"data"`
	}
	if err := yaml.Unmarshal(stdout, &doc); err != nil {
		t.Fatalf("yaml output: %v\n%s", err, stdout)
	}
	if len(doc.Data) != 1 || doc.Data[0]["name"] != "Work" {
		t.Fatalf("yaml data = %#v", doc.Data)
	}
}

func TestInvalidIDsAreRejected(t *testing.T) {
	db := isolate(t)
	for _, args := range [][]string{
		{"items", "nudge", "007", "up"},
		{"items", "nudge", "7", "sideways"},
		{"lists", "rename", "-1", "--name", "x"},
	} {
		_, stderr, err := runCLI(t, append([]string{"--db", db}, args...))
		if err == nil {
			t.Fatalf("planner %v: expected an error", args)
		}
		if len(bytes.TrimSpace(stderr)) == 0 {
			t.Fatalf("planner %v: expected a message on stderr", args)
		}
	}
}

func TestNudgeUnknownItemFails(t *testing.T) {
	db := isolate(t)
	b := fixture{t: t, db: db}
	b.run("init")
	_, stderr, err := runCLI(t, []string{"--db", db, "items", "nudge", "999", "up"})
	if err == nil || !strings.Contains(string(stderr), "999") {
		t.Fatalf("err = %v, stderr = %s", err, stderr)
	}
}

func TestDocsTopics(t *testing.T) {
	b := fixture{t: t, db: isolate(t)}
	env := b.run("docs")
	topics, _ := env["data"].(map[string]any)["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("topics = %#v", env["data"])
	}
	env = b.run("docs", "moving")
	if md, _ := env["data"].(map[string]any)["markdown"].(string); !strings.Contains(md, "nudge") {
		t.Fatalf("moving topic = %q", md)
	}
	if _, _, err := runCLI(t, []string{"--db", b.db, "docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic to fail")
	}
}
