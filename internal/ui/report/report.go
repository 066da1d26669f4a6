// Package report renders snapshots, frames and daemon status as text.
package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/disiqueira/gotree/v3"

	"github.com/exapitools/npcinv/internal/control/client"
	"github.com/exapitools/npcinv/internal/layout"
	"github.com/exapitools/npcinv/internal/overlay"
	"github.com/exapitools/npcinv/internal/state"
)

const nameWidth = 40

type matchKey struct {
	tab     string
	address uint64
}

// Tree renders a snapshot as one branch per tab, annotating items with the
// rule that highlighted or listed them in frame.
func Tree(label string, snap state.Snapshot, frame overlay.Frame) string {
	root := gotree.New(label)
	if snap.Empty() {
		root.Add("(no trade window)")
		return root.Print()
	}

	matched := make(map[matchKey]string, len(frame.Highlights)+len(frame.Missed))
	for _, h := range frame.Highlights {
		matched[matchKey{h.Tab, h.Address}] = formatHighlight(h)
	}
	for _, m := range frame.Missed {
		matched[matchKey{m.Tab, m.Address}] = "listed by " + m.Rule
	}

	for _, tab := range snap.Tabs {
		header := tab.Title
		if tab.IsVisible {
			header += " (visible)"
		}
		branch := root.Add(fmt.Sprintf("%s: %d server, %d on screen", header, len(tab.ServerItems), len(tab.WindowItems)))
		items := tab.ServerItems
		if tab.IsVisible {
			items = tab.WindowItems
		}
		for _, item := range items {
			text := truncate(item.DisplayName(), nameWidth)
			if item.Rect != nil {
				text += " " + formatRect(*item.Rect)
			}
			if note, ok := matched[matchKey{tab.Title, item.Address}]; ok {
				text += " <- " + note
			}
			branch.Add(text)
		}
	}

	if frame.Listing != nil {
		listing := root.Add(fmt.Sprintf("listing %s", formatRect(frame.Listing.Box)))
		if frame.Listing.Hidden {
			listing.Add("(hidden under tooltip)")
		}
		for _, line := range frame.Listing.Lines {
			if line == "" {
				continue
			}
			listing.Add(strings.ReplaceAll(line, "\t", "  "))
		}
	}
	return root.Print()
}

func formatHighlight(h overlay.Highlight) string {
	if h.Dimmed {
		return fmt.Sprintf("framed by %s (dimmed)", h.Rule)
	}
	return "framed by " + h.Rule
}

// Rules renders catalog entries as a table followed by load failures.
func Rules(status client.RulesStatus) string {
	var b strings.Builder
	b.WriteString("Rules:\n")
	if len(status.Entries) == 0 {
		b.WriteString("  (none)\n")
	} else {
		loaded := make(map[string]bool, len(status.Loaded))
		for _, name := range status.Loaded {
			loaded[name] = true
		}
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Name\tEnabled\tLoaded\tLocation")
		for _, e := range status.Entries {
			location := e.Location
			if location == "" {
				location = "(missing)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, yesNo(e.Enabled), yesNo(loaded[e.Name]), location)
		}
		tw.Flush()
	}
	if len(status.Failures) > 0 {
		b.WriteString("Failures:\n")
		for _, f := range status.Failures {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return b.String()
}

// Metrics renders per-rule counters sorted by highlight count.
func Metrics(snapshot client.MetricsSnapshot) string {
	var b strings.Builder
	if !snapshot.Enabled {
		b.WriteString("Metrics: disabled\n")
		return b.String()
	}
	t := snapshot.Totals
	fmt.Fprintf(&b, "Metrics: %d highlighted, %d missed, %d frames, %d snapshot builds, %d reloads\n",
		t.Highlighted, t.Missed, t.FramesWithContent, t.SnapshotRebuilds, t.RuleReloads)
	if len(snapshot.Rules) == 0 {
		return b.String()
	}
	rules := append([]client.RuleMetrics(nil), snapshot.Rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Highlighted > rules[j].Highlighted
	})
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Rule\tHighlighted\tMissed")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Rule, r.Highlighted, r.Missed)
	}
	tw.Flush()
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatRect(rect layout.Rect) string {
	return fmt.Sprintf("%.0fx%.0f @ %.0f,%.0f", rect.Width, rect.Height, rect.X, rect.Y)
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
