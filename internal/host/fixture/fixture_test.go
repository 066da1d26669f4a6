package fixture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/util"
)

const townDump = `
area:
  name: Lioneye's Watch
  town: true
inventories:
  - items:
      - {address: 1, path: Metadata/Items/Currency/Mirror, name: Mirror of Kalandra}
      - null
  - items:
      - {address: 2, path: Metadata/Items/Currency/Divine, name: Divine Orb, stackSize: 3}
townWindow:
  visible: true
  tabContainer: {x: 100, y: 120, width: 600, height: 600}
  tabs:
    - visible: true
      items:
        - address: 1
          rect: {x: 110, y: 130, width: 52, height: 52}
    - visible: false
hover:
  address: 2
  tooltip: {x: 0, y: 0, width: 10, height: 10}
`

func TestDecodeResolvesPlacementsByAddress(t *testing.T) {
	live, err := Decode([]byte(townDump))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if live.HideoutWindow == nil || live.HideoutWindow.Visible {
		t.Fatalf("omitted hideout window should be present and hidden, got %+v", live.HideoutWindow)
	}
	if len(live.Inventories) != 2 || live.Inventories[0].Items[1] != nil {
		t.Fatalf("unexpected inventories %+v", live.Inventories)
	}
	placed := live.TownWindow.Tabs[0].Items[0].Item
	if placed != live.Inventories[0].Items[0] {
		t.Fatalf("placement should share the inventory record")
	}
	if live.Hover == nil || live.Hover.Item == nil || live.Hover.Item.Name != "Divine Orb" {
		t.Fatalf("hover item not resolved: %+v", live.Hover)
	}

	snap := state.BuildSnapshot(live)
	if len(snap.Tabs) != 2 || !snap.Tabs[0].IsVisible || snap.Tabs[1].Title != "-2-" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDecodeRejectsUnknownPlacement(t *testing.T) {
	doc := "townWindow:\n  tabs:\n    - items:\n        - address: 42\n"
	if _, err := Decode([]byte(doc)); err == nil {
		t.Fatalf("expected unresolved address to fail")
	}
}

func TestSourceRereadsChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	src := NewSource(path, util.NewLoggerWithWriter(util.LevelError, io.Discard))
	ctx := context.Background()

	live, err := src.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if state.AnchorSurface(live) != nil {
		t.Fatalf("missing file should not show a window")
	}

	if err := os.WriteFile(path, []byte(townDump), 0o600); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	first, err := src.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	again, err := src.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if first != again {
		t.Fatalf("unchanged file should reuse the decoded view")
	}

	if err := os.WriteFile(path, []byte("area: {name: Hideout, hideout: true}\n"), 0o600); err != nil {
		t.Fatalf("rewrite dump: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	updated, err := src.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !updated.Area.IsHideout || updated.Inventories != nil {
		t.Fatalf("expected rewritten state, got %+v", updated)
	}
}

func TestCaptureHonoursCancellation(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "host.yaml"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Capture(ctx); err == nil {
		t.Fatalf("expected cancelled capture to fail")
	}
}
