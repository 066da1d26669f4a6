package state

import (
	"context"
	"fmt"

	"github.com/exapitools/npcinv/internal/layout"
)

// Live is one cycle's view of host-owned state. It is borrowed: the host may
// replace it wholesale between cycles, so nothing here is retained past a
// single build or render.
type Live struct {
	// Inventories are the server-side NPC inventories indexed by tab. Nil when
	// the host has not initialized them.
	Inventories   []Inventory
	HideoutWindow *PurchaseWindow
	TownWindow    *PurchaseWindow
	Area          Area
	Hover         *Hover
}

// Inventory is a server-side inventory. Nil entries are empty slots.
type Inventory struct {
	Items []*ItemRecord `yaml:"items"`
}

// PurchaseWindow is one client trade window surface.
type PurchaseWindow struct {
	Visible      bool        `yaml:"visible"`
	TabContainer layout.Rect `yaml:"tabContainer"`
	Tabs         []WindowTab `yaml:"tabs"`
}

// WindowTab is a tab of a purchase window with its currently rendered items.
type WindowTab struct {
	Visible bool          `yaml:"visible"`
	Items   []VisibleItem `yaml:"items"`
}

// VisibleItem is a rendered item and its screen rectangle.
type VisibleItem struct {
	Item *ItemRecord `yaml:"item"`
	Rect layout.Rect `yaml:"rect"`
}

// Area describes the current world area.
type Area struct {
	Name      string `yaml:"name"`
	IsHideout bool   `yaml:"hideout"`
	IsTown    bool   `yaml:"town"`
}

// Hover describes the UI element under the cursor.
type Hover struct {
	Address uint64      `yaml:"address" json:"address"`
	Tooltip layout.Rect `yaml:"tooltip" json:"tooltip"`
	Item    *ItemRecord `yaml:"item" json:"item,omitempty"`
}

// DataSource captures host state once per tick.
type DataSource interface {
	Capture(ctx context.Context) (*Live, error)
}

// SurfaceKind identifies which purchase window is in use.
type SurfaceKind string

const (
	SurfaceNone    SurfaceKind = ""
	SurfaceHideout SurfaceKind = "hideout"
	SurfaceTown    SurfaceKind = "town"
)

// ActiveSurface selects the purchase window the snapshot is built from. The
// hideout and town windows present the same tab data and are never combined.
func ActiveSurface(live *Live) (*PurchaseWindow, SurfaceKind) {
	if live == nil || live.HideoutWindow == nil || live.TownWindow == nil {
		return nil, SurfaceNone
	}
	switch {
	case live.Area.IsHideout && live.HideoutWindow.Visible:
		return live.HideoutWindow, SurfaceHideout
	case live.Area.IsTown && live.TownWindow.Visible:
		return live.TownWindow, SurfaceTown
	default:
		return nil, SurfaceNone
	}
}

// AnchorSurface returns the visible window used to position overlay output,
// regardless of area kind. Nil when neither window is shown.
func AnchorSurface(live *Live) *PurchaseWindow {
	if live == nil {
		return nil
	}
	if live.HideoutWindow != nil && live.HideoutWindow.Visible {
		return live.HideoutWindow
	}
	if live.TownWindow != nil && live.TownWindow.Visible {
		return live.TownWindow
	}
	return nil
}

// BuildSnapshot joins server inventories with the active window's tabs. The
// two item lists of a tab are derived independently and may differ.
func BuildSnapshot(live *Live) Snapshot {
	if live == nil || live.Inventories == nil {
		return Snapshot{}
	}
	surface, _ := ActiveSurface(live)
	if surface == nil {
		return Snapshot{}
	}
	tabs := make([]TabView, 0, len(surface.Tabs))
	for i, tab := range surface.Tabs {
		view := TabView{
			Index:       i,
			Title:       fmt.Sprintf("-%d-", i+1),
			IsVisible:   tab.Visible,
			ServerItems: []ItemRecord{},
			WindowItems: []ItemRecord{},
		}
		if i < len(live.Inventories) {
			for _, item := range live.Inventories[i].Items {
				if !item.Resolvable() {
					continue
				}
				view.ServerItems = append(view.ServerItems, cloneRecord(item, nil))
			}
		}
		for _, visible := range tab.Items {
			if !visible.Item.Resolvable() {
				continue
			}
			rect := visible.Rect
			view.WindowItems = append(view.WindowItems, cloneRecord(visible.Item, &rect))
		}
		tabs = append(tabs, view)
	}
	return Snapshot{Tabs: tabs}
}
