// Package fixture replays host state from a YAML dump so the overlay can run
// without a live game client.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/exapitools/npcinv/internal/layout"
	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/util"
)

// Document is the on-disk host state layout.
type Document struct {
	Area          state.Area        `yaml:"area"`
	Inventories   []state.Inventory `yaml:"inventories"`
	HideoutWindow *Window           `yaml:"hideoutWindow"`
	TownWindow    *Window           `yaml:"townWindow"`
	Hover         *Hover            `yaml:"hover"`
}

// Window describes a purchase window surface. An omitted window is loaded but hidden.
type Window struct {
	Visible      bool        `yaml:"visible"`
	TabContainer layout.Rect `yaml:"tabContainer"`
	Tabs         []Tab       `yaml:"tabs"`
}

// Tab lists the items a window tab renders.
type Tab struct {
	Visible bool        `yaml:"visible"`
	Items   []Placement `yaml:"items"`
}

// Placement positions an item on screen. The item is either given inline or
// looked up by address among the inventories.
type Placement struct {
	Address uint64            `yaml:"address"`
	Item    *state.ItemRecord `yaml:"item"`
	Rect    layout.Rect       `yaml:"rect"`
}

// Hover is the element under the cursor. Its item is resolved by address.
type Hover struct {
	Address uint64      `yaml:"address"`
	Tooltip layout.Rect `yaml:"tooltip"`
}

// Decode parses a host state document.
func Decode(data []byte) (*state.Live, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode host state: %w", err)
	}
	return doc.Live()
}

// Live converts the document into the host view consumed by the engine.
func (d Document) Live() (*state.Live, error) {
	byAddress := make(map[uint64]*state.ItemRecord)
	for _, inv := range d.Inventories {
		for _, item := range inv.Items {
			if item != nil && item.Address != 0 {
				byAddress[item.Address] = item
			}
		}
	}
	live := &state.Live{
		Inventories: d.Inventories,
		Area:        d.Area,
	}
	var err error
	if live.HideoutWindow, err = d.HideoutWindow.surface(byAddress); err != nil {
		return nil, fmt.Errorf("hideoutWindow: %w", err)
	}
	if live.TownWindow, err = d.TownWindow.surface(byAddress); err != nil {
		return nil, fmt.Errorf("townWindow: %w", err)
	}
	if d.Hover != nil {
		live.Hover = &state.Hover{
			Address: d.Hover.Address,
			Tooltip: d.Hover.Tooltip,
			Item:    byAddress[d.Hover.Address],
		}
	}
	return live, nil
}

func (w *Window) surface(byAddress map[uint64]*state.ItemRecord) (*state.PurchaseWindow, error) {
	if w == nil {
		return &state.PurchaseWindow{}, nil
	}
	out := &state.PurchaseWindow{Visible: w.Visible, TabContainer: w.TabContainer}
	for i, tab := range w.Tabs {
		wt := state.WindowTab{Visible: tab.Visible}
		for _, p := range tab.Items {
			item := p.Item
			if item == nil {
				item = byAddress[p.Address]
			}
			if item == nil {
				return nil, fmt.Errorf("tab %d: no item with address %d", i, p.Address)
			}
			wt.Items = append(wt.Items, state.VisibleItem{Item: item, Rect: p.Rect})
		}
		out.Tabs = append(out.Tabs, wt)
	}
	return out, nil
}

// Source is a state.DataSource backed by a host state file. The file is
// re-read whenever its modification time changes.
type Source struct {
	path   string
	logger *util.Logger

	modTime time.Time
	size    int64
	live    *state.Live
}

// NewSource returns a source reading path.
func NewSource(path string, logger *util.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Source) Path() string { return s.path }

// Capture returns the host state currently stored in the file. A missing file
// means the game UI is not up and yields an empty view.
func (s *Source) Capture(ctx context.Context) (*state.Live, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.live = nil
		s.modTime = time.Time{}
		return &state.Live{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat host state: %w", err)
	}
	if s.live != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.live, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read host state: %w", err)
	}
	live, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debugf("loaded host state from %s", s.path)
	s.live = live
	s.modTime = info.ModTime()
	s.size = info.Size()
	return live, nil
}
