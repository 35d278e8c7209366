package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewLogger builds the process logger: text records at the configured level,
// to LogFile when set, else to fallback. The returned close func releases
// the log file.
func (c Config) NewLogger(fallback io.Writer) (*slog.Logger, func() error, error) {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	w := fallback
	closeFn := func() error { return nil }
	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = f.Close
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h), closeFn, nil
}
