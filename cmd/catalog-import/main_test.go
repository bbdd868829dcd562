package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
)

func TestReadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	doc := `{"settings": {"4": {"import_into": "inventories", "reset_all_absent": true}}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Run("file and range flags", func(t *testing.T) {
		s, err := readSettings(&options{settingsPath: path, start: 2, end: 40})
		if err != nil {
			t.Fatalf("readSettings: %v", err)
		}
		if s.For(4).Target() != core.TargetInventory || !s.For(4).ResetAllAbsent {
			t.Errorf("supplier 4 = %+v", s.For(4))
		}
		if s.Start != 2 || s.End != 40 {
			t.Errorf("range = %d-%d", s.Start, s.End)
		}
	})

	t.Run("no file", func(t *testing.T) {
		s, err := readSettings(&options{})
		if err != nil {
			t.Fatalf("readSettings: %v", err)
		}
		if !s.Empty() {
			t.Errorf("settings = %+v, want empty", s)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := readSettings(&options{settingsPath: filepath.Join(dir, "nope.json")}); err == nil {
			t.Error("expected error")
		}
	})
}
