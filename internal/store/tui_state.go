package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// TUIState is the board selection restored on relaunch. It is best effort:
// a missing or unreadable file yields the default state.
type TUIState struct {
	Version int `json:"version"`

	// Focus is one of: items|lists
	Focus string `json:"focus,omitempty"`
	// Selected is the key of the selected item or list.
	Selected string `json:"selected,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// TUIStatePath lives next to the database, so each board keeps its own.
func (s *Store) TUIStatePath() string {
	return s.path + ".tui.json"
}

func (s *Store) LoadTUIState() (*TUIState, error) {
	b, err := os.ReadFile(s.TUIStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupt state is treated as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s *Store) SaveTUIState(st *TUIState) error {
	if st == nil {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.TUIStatePath()
	return atomicWriteFile(filepath.Dir(path), ".tui-*.tmp", path, b, 0o644)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
