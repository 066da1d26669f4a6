package itemfilter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/exapitools/npcinv/internal/state"
)

func mustParse(t *testing.T, src string) *Rule {
	t.Helper()
	m, err := Loader{}.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return m.(*Rule)
}

func TestFieldConditionsAreConjunctive(t *testing.T) {
	rule := mustParse(t, "class: Currency\nminStack: 10\n")
	if !rule.Matches(state.ItemRecord{Class: "currency", StackSize: 12}) {
		t.Fatalf("expected case-insensitive class with enough stack to match")
	}
	if rule.Matches(state.ItemRecord{Class: "Currency", StackSize: 3}) {
		t.Fatalf("expected small stack to fail")
	}
}

func TestLogicalCombinators(t *testing.T) {
	rule := mustParse(t, `
any:
  - rarity: Unique
  - all:
      - class: Map
      - minItemLevel: 80
not:
  nameRegex: "^Corrupted"
`)
	cases := []struct {
		item state.ItemRecord
		want bool
	}{
		{state.ItemRecord{Name: "Headhunter", Rarity: "Unique"}, true},
		{state.ItemRecord{Name: "Corrupted Thing", Rarity: "Unique"}, false},
		{state.ItemRecord{Name: "Strand Map", Class: "Map", ItemLevel: 83}, true},
		{state.ItemRecord{Name: "Strand Map", Class: "Map", ItemLevel: 70}, false},
	}
	for _, tc := range cases {
		if got := rule.Matches(tc.item); got != tc.want {
			t.Fatalf("Matches(%+v) = %t, want %t", tc.item, got, tc.want)
		}
	}
}

func TestAttrAndPathPrefix(t *testing.T) {
	rule := mustParse(t, "pathPrefix: Metadata/Items/Weapons\nattr:\n  influence: Shaper\n")
	item := state.ItemRecord{Path: "Metadata/Items/Weapons/Bow1", Attributes: map[string]string{"influence": "shaper"}}
	if !rule.Matches(item) {
		t.Fatalf("expected shaper bow to match")
	}
	item.Attributes = nil
	if rule.Matches(item) {
		t.Fatalf("expected missing attribute to fail")
	}
}

func TestParseRejectsEmptyAndUnknown(t *testing.T) {
	if _, err := (Loader{}).Parse(""); !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule for empty document, got %v", err)
	}
	if _, err := (Loader{}).Parse("any: []\n"); !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule for empty any, got %v", err)
	}
	if _, err := (Loader{}).Parse("colour: red\n"); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
	if _, err := (Loader{}).Parse("nameRegex: \"(\"\n"); err == nil {
		t.Fatalf("expected invalid regex to fail")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uniques.ifl")
	if err := os.WriteFile(path, []byte("rarity: Unique\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Matches(state.ItemRecord{Rarity: "Unique"}) {
		t.Fatalf("expected loaded rule to match")
	}
	if _, err := (Loader{}).Load(filepath.Join(t.TempDir(), "absent.ifl")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
