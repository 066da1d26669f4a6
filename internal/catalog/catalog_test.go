package catalog

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exapitools/npcinv/internal/util"
)

func writeRule(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("class: Currency\n"), 0o600); err != nil {
		t.Fatalf("write rule %s: %v", name, err)
	}
}

func quietLogger() *util.Logger {
	return util.NewLoggerWithWriter(util.LevelError, io.Discard)
}

func TestRefreshCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rules")
	store := &MemoryStore{Entries: []Entry{{Name: "kept", Enabled: true}}}
	cat := New(dir, ".ifl", store, quietLogger())

	entries, err := cat.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty catalog on first pass, got %+v", entries)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected rule directory to be created: %v", err)
	}
	if store.Saves != 0 {
		t.Fatalf("persisted list must not be touched when the directory was missing")
	}
}

func TestRefreshPersistsAndPreservesToggles(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "currency.ifl")
	writeRule(t, dir, "maps.ifl")
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "catalog.yaml"))
	cat := New(dir, ".ifl", store, quietLogger())

	if _, err := cat.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(cat.Enabled()) != 0 {
		t.Fatalf("new rules must start disabled")
	}
	if err := cat.SetEnabled("maps", true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "currency.ifl")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	writeRule(t, dir, "uniques.ifl")

	reloaded := New(dir, ".ifl", store, quietLogger())
	entries, err := reloaded.Refresh()
	if err != nil {
		t.Fatalf("Refresh after churn: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "maps" || !entries[0].Enabled {
		t.Fatalf("expected maps to stay enabled, got %+v", entries)
	}
	if entries[1].Name != "uniques" || entries[1].Enabled {
		t.Fatalf("expected uniques appended disabled, got %+v", entries)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected reconciled list to be persisted, got %+v", persisted)
	}
}

func TestRefreshLogsDiffOnlyWhenChanged(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "currency.ifl")
	var logs bytes.Buffer
	store := &MemoryStore{}
	cat := New(dir, ".ifl", store, util.NewLoggerWithWriter(util.LevelInfo, &logs))

	if _, err := cat.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(logs.String(), "rule catalog changed") {
		t.Fatalf("expected change log, got %s", logs.String())
	}
	logs.Reset()
	if _, err := cat.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if store.Saves != 1 {
		t.Fatalf("unchanged catalog must not be saved again, saves=%d", store.Saves)
	}
	if strings.Contains(logs.String(), "rule catalog changed") {
		t.Fatalf("unexpected change log on fixed point: %s", logs.String())
	}
}

func TestSetEnabledUnknownRule(t *testing.T) {
	cat := New(t.TempDir(), ".ifl", &MemoryStore{}, quietLogger())
	if _, err := cat.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := cat.SetEnabled("missing", true); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.yaml"))
	entries, err := store.Load()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %+v (%v)", entries, err)
	}
}
