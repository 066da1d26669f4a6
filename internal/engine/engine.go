package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/exapitools/npcinv/internal/cache"
	"github.com/exapitools/npcinv/internal/catalog"
	"github.com/exapitools/npcinv/internal/filterset"
	"github.com/exapitools/npcinv/internal/metrics"
	"github.com/exapitools/npcinv/internal/overlay"
	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/util"
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

const (
	defaultSnapshotTTL   = 50 * time.Millisecond
	defaultFrameInterval = 50 * time.Millisecond
)

// Options tunes the engine loop.
type Options struct {
	SnapshotTTL   time.Duration
	FrameInterval time.Duration
	// FilterTest is an inline rule evaluated against the hovered item and logged.
	FilterTest string
	Metrics    *metrics.Collector
	Clock      func() time.Time
}

// RulesStatus describes the catalog and the outcome of the last reload.
type RulesStatus struct {
	Entries  []catalog.Entry `json:"entries"`
	Loaded   []string        `json:"loaded"`
	Failures []string        `json:"failures,omitempty"`
	Reloaded time.Time       `json:"reloaded"`
}

// Engine runs the capture, snapshot and present cycle. Everything except the
// published views is owned by the goroutine calling Run (or Tick, Render and
// Reload directly).
type Engine struct {
	source    state.DataSource
	catalog   *catalog.Catalog
	loader    filterset.Loader
	presenter *overlay.Presenter
	logger    *util.Logger
	metrics   *metrics.Collector

	frameInterval time.Duration
	clock         func() time.Time

	live       *state.Live
	snapshots  *cache.TimeCache[state.Snapshot]
	filters    *filterset.FilterSet
	filterTest filterset.Matcher
	lastHover  uint64

	reloadRequests chan string

	mu        sync.Mutex
	lastFrame overlay.Frame
	rules     RulesStatus

	tickerFactory func() ticker
}

// New creates an engine. Rules are not loaded until Reload or Run.
func New(source state.DataSource, cat *catalog.Catalog, loader filterset.Loader, presenter *overlay.Presenter, logger *util.Logger, opts Options) *Engine {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultFrameInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	e := &Engine{
		source:         source,
		catalog:        cat,
		loader:         loader,
		presenter:      presenter,
		logger:         logger,
		metrics:        opts.Metrics,
		frameInterval:  opts.FrameInterval,
		clock:          opts.Clock,
		filters:        &filterset.FilterSet{},
		reloadRequests: make(chan string, 1),
	}
	e.snapshots = cache.New(e.buildSnapshot, opts.SnapshotTTL, cache.WithClock(opts.Clock))
	e.tickerFactory = func() ticker {
		return realTicker{time.NewTicker(e.frameInterval)}
	}
	if opts.FilterTest != "" {
		e.compileFilterTest(opts.FilterTest)
	}
	return e
}

func (e *Engine) compileFilterTest(src string) {
	parser, ok := e.loader.(filterset.Parser)
	if !ok {
		e.logger.Warnf("filter test ignored: rule loader cannot parse inline rules")
		return
	}
	m, err := parser.Parse(src)
	if err != nil {
		e.logger.Warnf("filter test ignored: %v", err)
		return
	}
	e.filterTest = m
}

// buildSnapshot reads the capture current at call time.
func (e *Engine) buildSnapshot() state.Snapshot {
	return state.BuildSnapshot(e.live)
}

// Run reloads rules and then ticks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Reload("startup"); err != nil {
		e.logger.Errorf("initial rule load failed: %v", err)
	}
	tick := e.newTicker()
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-e.reloadRequests:
			if err := e.Reload(reason); err != nil {
				e.logger.Errorf("reload failed: %v", err)
			}
		case <-tick.C():
			if err := e.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warnf("capture failed: %v", err)
			}
			e.Render()
		}
	}
}

func (e *Engine) newTicker() ticker {
	if e.tickerFactory != nil {
		return e.tickerFactory()
	}
	return realTicker{time.NewTicker(e.frameInterval)}
}

// RequestReload queues a rule reload for the loop. Requests coalesce while
// one is pending.
func (e *Engine) RequestReload(reason string) {
	select {
	case e.reloadRequests <- reason:
	default:
		e.logger.Debugf("reload already pending, dropping request (%s)", reason)
	}
}

// Tick captures the host state for this cycle, replacing the previous capture.
func (e *Engine) Tick(ctx context.Context) error {
	live, err := e.source.Capture(ctx)
	if err != nil {
		e.live = nil
		return fmt.Errorf("capture host state: %w", err)
	}
	e.live = live
	return nil
}

// Render presents the cached snapshot for the current capture.
func (e *Engine) Render() overlay.Frame {
	anchor := state.AnchorSurface(e.live)
	if anchor == nil {
		e.publishFrame(overlay.Frame{})
		return overlay.Frame{}
	}
	snap := e.snapshots.Value()
	frame := e.presenter.Present(overlay.Input{
		Snapshot: snap,
		Filter:   e.filters,
		Hover:    e.live.Hover,
		Anchor:   anchor.TabContainer,
	})
	e.debugFilterTest(e.live.Hover)
	e.record(frame)
	e.publishFrame(frame)
	return frame
}

// Snapshot returns the cached snapshot for the current capture, or an empty
// snapshot when no trade window is shown.
func (e *Engine) Snapshot() state.Snapshot {
	if state.AnchorSurface(e.live) == nil {
		return state.Snapshot{}
	}
	return e.snapshots.Value()
}

func (e *Engine) debugFilterTest(hover *state.Hover) {
	if e.filterTest == nil || hover == nil || hover.Item == nil || hover.Address == 0 {
		return
	}
	if hover.Address == e.lastHover {
		return
	}
	e.lastHover = hover.Address
	e.logger.Debugf("filter test on hovered %q: matched=%t", hover.Item.DisplayName(), e.filterTest.Matches(*hover.Item))
}

func (e *Engine) record(frame overlay.Frame) {
	if e.metrics == nil {
		return
	}
	e.metrics.SetSnapshotRebuilds(e.snapshots.Version())
	if frame.Empty() {
		return
	}
	e.metrics.RecordFrame()
	for _, h := range frame.Highlights {
		e.metrics.RecordHighlight(h.Rule)
	}
	for _, m := range frame.Missed {
		e.metrics.RecordMissed(m.Rule)
	}
}

// Reload rescans the rule directory and rebuilds the filter set. A failed
// refresh keeps the previous filter set.
func (e *Engine) Reload(reason string) error {
	e.logger.Infof("%s, reloading rules from %s", reason, e.catalog.Dir())
	entries, err := e.catalog.Refresh()
	if err != nil {
		return fmt.Errorf("refresh rule catalog: %w", err)
	}
	set, failures := filterset.Build(e.catalog.Enabled(), e.loader, e.logger)
	e.filters = set
	e.snapshots.Invalidate()
	e.metrics.RecordReload()

	status := RulesStatus{
		Entries:  entries,
		Loaded:   set.Rules(),
		Reloaded: e.clock(),
	}
	for _, f := range failures {
		status.Failures = append(status.Failures, f.Error())
	}
	e.mu.Lock()
	e.rules = status
	e.mu.Unlock()
	return nil
}

func (e *Engine) publishFrame(frame overlay.Frame) {
	e.mu.Lock()
	e.lastFrame = frame
	e.mu.Unlock()
}

// LastFrame returns the most recent rendered frame.
func (e *Engine) LastFrame() overlay.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFrame
}

// RulesStatus returns the catalog view from the last reload.
func (e *Engine) RulesStatus() RulesStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := e.rules
	status.Entries = append([]catalog.Entry(nil), e.rules.Entries...)
	status.Loaded = append([]string(nil), e.rules.Loaded...)
	status.Failures = append([]string(nil), e.rules.Failures...)
	return status
}

// Metrics returns the collector snapshot.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}
