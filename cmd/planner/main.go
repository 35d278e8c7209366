package main

import (
	"os"
	"strings"

	"planner-cli/internal/cli"
	"planner-cli/internal/placeholder"
)

func isDirection(s string) bool {
	s = strings.TrimSpace(s)
	return s == "up" || s == "down"
}

func rewriteDirectNudgeArgs(argv []string) []string {
	// Convenience: `planner <item-id> up|down` works like `planner items nudge <item-id> up|down`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `planner --db ./b.sqlite 7 up`), so look for the
	// first positional token, not just argv[1].
	if len(argv) < 3 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--db":        true,
		"--columns":   true,
		"--log-level": true,
		"--log-file":  true,
		"--redis-url": true,
		"--format":    true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	rewrite := func(i int) []string {
		if i+1 >= len(argv) || !placeholder.IsCanonicalKey(strings.TrimSpace(argv[i])) || !isDirection(argv[i+1]) {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "items", "nudge")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}
		return rewrite(i)
	}
	return argv
}

func main() {
	os.Args = rewriteDirectNudgeArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
