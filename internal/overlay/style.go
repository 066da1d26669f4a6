package overlay

import (
	"strings"
	"unicode/utf8"

	"github.com/exapitools/npcinv/internal/config"
	"github.com/exapitools/npcinv/internal/layout"
)

// Style controls how directives are colored and positioned.
type Style struct {
	FrameColor     layout.Color
	FrameThickness int
	DimmedAlpha    uint8
	ListingOffset  float64
	ListingPadding float64
	BoxColor       layout.Color
	TextColor      layout.Color
}

// StyleFromConfig builds a style from a defaulted configuration.
func StyleFromConfig(cfg *config.Config) Style {
	return Style{
		FrameColor:     *cfg.Frame.Color,
		FrameThickness: *cfg.Frame.Thickness,
		DimmedAlpha:    *cfg.Frame.DimmedAlpha,
		ListingOffset:  *cfg.Listing.Offset,
		ListingPadding: *cfg.Listing.Padding,
		BoxColor:       *cfg.Listing.BoxColor,
		TextColor:      *cfg.Listing.TextColor,
	}
}

// TextMeasurer reports the rendered size of a line of text.
type TextMeasurer interface {
	Measure(text string) (width, height float64)
}

// MonospaceMeasurer approximates text size with a fixed cell size. Tabs
// count as TabWidth cells.
type MonospaceMeasurer struct {
	CharWidth  float64
	LineHeight float64
	TabWidth   int
}

// DefaultMeasurer matches the host's default overlay font closely enough for layout.
var DefaultMeasurer = MonospaceMeasurer{CharWidth: 7, LineHeight: 15, TabWidth: 4}

func (m MonospaceMeasurer) Measure(text string) (float64, float64) {
	tab := m.TabWidth
	if tab <= 0 {
		tab = 4
	}
	cells := utf8.RuneCountInString(text) + strings.Count(text, "\t")*(tab-1)
	return float64(cells) * m.CharWidth, m.LineHeight
}
