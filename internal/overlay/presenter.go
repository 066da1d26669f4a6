// Package overlay decides what to highlight for a trade window snapshot.
// It produces directives only; drawing is left to the host.
package overlay

import (
	"fmt"

	"github.com/exapitools/npcinv/internal/layout"
	"github.com/exapitools/npcinv/internal/state"
)

// Filter reports the rule that accepts an item, if any.
type Filter interface {
	Match(item state.ItemRecord) (rule string, ok bool)
}

// Highlight frames a matching item in the visible tab.
type Highlight struct {
	Tab       string       `json:"tab"`
	Address   uint64       `json:"address"`
	Name      string       `json:"name"`
	Rule      string       `json:"rule"`
	Rect      layout.Rect  `json:"rect"`
	Color     layout.Color `json:"color"`
	Thickness int          `json:"thickness"`
	Dimmed    bool         `json:"dimmed"`
}

// Missed is a matching item in a tab that is not on screen.
type Missed struct {
	Tab     string `json:"tab"`
	Address uint64 `json:"address"`
	Name    string `json:"name"`
	Rule    string `json:"rule"`
}

// Listing is the text box naming missed items, grouped by tab.
type Listing struct {
	Lines      []string     `json:"lines"`
	Box        layout.Rect  `json:"box"`
	TextOrigin layout.Point `json:"textOrigin"`
	LineHeight float64      `json:"lineHeight"`
	BoxColor   layout.Color `json:"boxColor"`
	TextColor  layout.Color `json:"textColor"`
	// Hidden is set when the hovered tooltip overlaps the box.
	Hidden bool `json:"hidden"`
}

// Frame is everything the host should draw for one render pass.
type Frame struct {
	Highlights []Highlight `json:"highlights,omitempty"`
	Missed     []Missed    `json:"missed,omitempty"`
	Listing    *Listing    `json:"listing,omitempty"`
}

// Empty reports whether the frame has nothing to draw.
func (f Frame) Empty() bool {
	return len(f.Highlights) == 0 && f.Listing == nil
}

// Input bundles one render pass worth of state.
type Input struct {
	Snapshot state.Snapshot
	Filter   Filter
	Hover    *state.Hover
	// Anchor is the tab container of the shown trade window.
	Anchor layout.Rect
}

// Presenter turns snapshots into frames.
type Presenter struct {
	Style   Style
	Measure TextMeasurer
}

// NewPresenter returns a presenter using the default measurer.
func NewPresenter(style Style) *Presenter {
	return &Presenter{Style: style, Measure: DefaultMeasurer}
}

// Present highlights matches in visible tabs and lists matches in hidden tabs.
func (p *Presenter) Present(in Input) Frame {
	var frame Frame
	if in.Filter == nil {
		return frame
	}
	hover := activeHover(in.Hover)

	var lines []string
	for _, tab := range in.Snapshot.Tabs {
		if tab.IsVisible {
			frame.Highlights = append(frame.Highlights, p.highlightTab(tab, in.Filter, hover)...)
			continue
		}
		header := false
		for _, item := range tab.ServerItems {
			rule, ok := in.Filter.Match(item)
			if !ok {
				continue
			}
			if !header {
				lines = append(lines, fmt.Sprintf("Tab [%s]", tab.Title))
				header = true
			}
			lines = append(lines, "\t"+item.DisplayName())
			frame.Missed = append(frame.Missed, Missed{
				Tab:     tab.Title,
				Address: item.Address,
				Name:    item.DisplayName(),
				Rule:    rule,
			})
		}
		if header {
			lines = append(lines, "")
		}
	}

	if len(lines) > 0 {
		frame.Listing = p.listing(lines, in.Anchor, hover)
	}
	return frame
}

func (p *Presenter) highlightTab(tab state.TabView, filter Filter, hover *state.Hover) []Highlight {
	var out []Highlight
	for _, item := range tab.WindowItems {
		if item.Rect == nil {
			continue
		}
		rule, ok := filter.Match(item)
		if !ok {
			continue
		}
		h := Highlight{
			Tab:       tab.Title,
			Address:   item.Address,
			Name:      item.DisplayName(),
			Rule:      rule,
			Rect:      *item.Rect,
			Color:     p.Style.FrameColor,
			Thickness: p.Style.FrameThickness,
		}
		if hover != nil && hover.Address != item.Address && hover.Tooltip.Intersects(*item.Rect) {
			h.Dimmed = true
			h.Color = h.Color.WithAlpha(p.Style.DimmedAlpha)
		}
		out = append(out, h)
	}
	return out
}

func (p *Presenter) listing(lines []string, anchor layout.Rect, hover *state.Hover) *Listing {
	measure := p.Measure
	if measure == nil {
		measure = DefaultMeasurer
	}
	var width, lineHeight float64
	for _, line := range lines {
		w, h := measure.Measure(line)
		if w > width {
			width = w
		}
		if h > lineHeight {
			lineHeight = h
		}
	}
	origin := anchor.TopRight()
	origin.X += p.Style.ListingOffset
	box := layout.Rect{
		X:      origin.X,
		Y:      origin.Y,
		Width:  width + p.Style.ListingPadding*2,
		Height: lineHeight * float64(len(lines)),
	}
	return &Listing{
		Lines:      lines,
		Box:        box,
		TextOrigin: layout.Point{X: origin.X + p.Style.ListingPadding, Y: origin.Y},
		LineHeight: lineHeight,
		BoxColor:   p.Style.BoxColor,
		TextColor:  p.Style.TextColor,
		Hidden:     hover != nil && hover.Tooltip.Intersects(box),
	}
}

// activeHover drops hover state that does not point at a live entity.
func activeHover(h *state.Hover) *state.Hover {
	if h == nil || h.Address == 0 {
		return nil
	}
	return h
}
