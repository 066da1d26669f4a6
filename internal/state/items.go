package state

import (
	"fmt"

	"github.com/exapitools/npcinv/internal/layout"
)

// ItemRecord is an owned copy of the fields the overlay reads from a live host item.
type ItemRecord struct {
	Address    uint64            `yaml:"address" json:"address"`
	Path       string            `yaml:"path" json:"path"`
	Name       string            `yaml:"name" json:"name"`
	BaseName   string            `yaml:"baseName" json:"baseName,omitempty"`
	Class      string            `yaml:"class" json:"class,omitempty"`
	Rarity     string            `yaml:"rarity" json:"rarity,omitempty"`
	ItemLevel  int               `yaml:"itemLevel" json:"itemLevel,omitempty"`
	StackSize  int               `yaml:"stackSize" json:"stackSize,omitempty"`
	Attributes map[string]string `yaml:"attributes" json:"attributes,omitempty"`
	Rect       *layout.Rect      `yaml:"-" json:"rect,omitempty"`
}

// Resolvable reports whether the item refers to a real entity rather than an empty slot.
// It takes a pointer so a nil slot from an inventory reads as unresolvable.
func (i *ItemRecord) Resolvable() bool {
	return i != nil && i.Path != ""
}

// DisplayName returns the name used in listings, falling back to the base name and path.
func (i ItemRecord) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.BaseName != "":
		return i.BaseName
	default:
		return i.Path
	}
}

// TabView is one inventory tab of the active trade window.
type TabView struct {
	Index       int          `json:"index"`
	Title       string       `json:"title"`
	IsVisible   bool         `json:"isVisible"`
	ServerItems []ItemRecord `json:"serverItems"`
	WindowItems []ItemRecord `json:"windowItems"`
}

func (t TabView) String() string {
	return fmt.Sprintf("Tab(%s) is Index(%d) IsVisible(%t) [ServerItems(%d), WindowItems(%d)]",
		t.Title, t.Index, t.IsVisible, len(t.ServerItems), len(t.WindowItems))
}

// Snapshot is the derived trade window view. It is never mutated after it is built.
type Snapshot struct {
	Tabs []TabView `json:"tabs"`
}

// Empty reports whether the snapshot holds no tabs.
func (s Snapshot) Empty() bool { return len(s.Tabs) == 0 }

func cloneRecord(src *ItemRecord, rect *layout.Rect) ItemRecord {
	out := *src
	if len(src.Attributes) > 0 {
		out.Attributes = make(map[string]string, len(src.Attributes))
		for k, v := range src.Attributes {
			out.Attributes[k] = v
		}
	}
	out.Rect = nil
	if rect != nil {
		r := *rect
		out.Rect = &r
	}
	return out
}
