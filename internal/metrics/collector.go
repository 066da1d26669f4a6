package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates per-rule match counters and cache activity.
type Collector struct {
	mu       sync.RWMutex
	enabled  bool
	started  time.Time
	rules    map[string]*RuleMetrics
	rebuilds uint64
	reloads  uint64
	frames   uint64
}

// RuleMetrics captures per-rule counters tracked by the collector.
type RuleMetrics struct {
	Rule            string    `json:"rule"`
	Highlighted     uint64    `json:"highlighted"`
	Missed          uint64    `json:"missed"`
	LastHighlighted time.Time `json:"lastHighlighted,omitempty"`
	LastMissed      time.Time `json:"lastMissed,omitempty"`
}

// Totals aggregates counters across all rules in a snapshot.
type Totals struct {
	Highlighted       uint64 `json:"highlighted"`
	Missed            uint64 `json:"missed"`
	SnapshotRebuilds  uint64 `json:"snapshotRebuilds"`
	RuleReloads       uint64 `json:"ruleReloads"`
	FramesWithContent uint64 `json:"framesWithContent"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled bool          `json:"enabled"`
	Started time.Time     `json:"started,omitempty"`
	Totals  Totals        `json:"totals"`
	Rules   []RuleMetrics `json:"rules,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	c.rebuilds, c.reloads, c.frames = 0, 0, 0
	if !enabled {
		c.rules = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.rules = make(map[string]*RuleMetrics)
}

// RecordHighlight counts an on-screen match for a rule.
func (c *Collector) RecordHighlight(rule string) {
	c.updateRule(rule, func(m *RuleMetrics, now time.Time) {
		m.Highlighted++
		m.LastHighlighted = now
	})
}

// RecordMissed counts an off-screen match for a rule.
func (c *Collector) RecordMissed(rule string) {
	c.updateRule(rule, func(m *RuleMetrics, now time.Time) {
		m.Missed++
		m.LastMissed = now
	})
}

// SetSnapshotRebuilds records the snapshot cache build count.
func (c *Collector) SetSnapshotRebuilds(n uint64) {
	c.update(func() { c.rebuilds = n })
}

// RecordReload counts a rule reload.
func (c *Collector) RecordReload() {
	c.update(func() { c.reloads++ })
}

// RecordFrame counts a render pass that produced output.
func (c *Collector) RecordFrame() {
	c.update(func() { c.frames++ })
}

func (c *Collector) update(mutate func()) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	mutate()
}

func (c *Collector) updateRule(rule string, mutate func(*RuleMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.rules == nil {
		c.rules = make(map[string]*RuleMetrics)
	}
	metrics, exists := c.rules[rule]
	if !exists {
		metrics = &RuleMetrics{Rule: rule}
		c.rules[rule] = metrics
	}
	mutate(metrics, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.Totals.SnapshotRebuilds = c.rebuilds
	snap.Totals.RuleReloads = c.reloads
	snap.Totals.FramesWithContent = c.frames
	if len(c.rules) == 0 {
		return snap
	}
	snap.Rules = make([]RuleMetrics, 0, len(c.rules))
	for _, metrics := range c.rules {
		if metrics == nil {
			continue
		}
		clone := *metrics
		snap.Rules = append(snap.Rules, clone)
		snap.Totals.Highlighted += clone.Highlighted
		snap.Totals.Missed += clone.Missed
	}
	sort.Slice(snap.Rules, func(i, j int) bool {
		return snap.Rules[i].Rule < snap.Rules[j].Rule
	})
	return snap
}
