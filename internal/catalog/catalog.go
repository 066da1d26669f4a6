// Package catalog keeps the persisted rule list in sync with the rule directory.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/exapitools/npcinv/internal/config"
	"github.com/exapitools/npcinv/internal/util"
)

// ErrUnknownRule is returned when toggling a rule the catalog does not hold.
var ErrUnknownRule = errors.New("unknown rule")

// Catalog owns the rule list for one rule directory.
type Catalog struct {
	dir     string
	ext     string
	store   Store
	logger  *util.Logger
	entries []Entry
}

// New creates a catalog for the rule files with extension ext inside dir.
func New(dir, ext string, store Store, logger *util.Logger) *Catalog {
	return &Catalog{dir: dir, ext: ext, store: store, logger: logger}
}

// Dir returns the watched rule directory.
func (c *Catalog) Dir() string { return c.dir }

// Refresh rescans the rule directory and persists the reconciled list. A
// missing directory is created and yields an empty catalog for this pass
// without touching the persisted list.
func (c *Catalog) Refresh() ([]Entry, error) {
	if _, err := os.Stat(c.dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create rule dir: %w", err)
		}
		c.logger.Infof("created rule directory %s", c.dir)
		c.entries = nil
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat rule dir: %w", err)
	}

	persisted, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	listing, err := Scan(c.dir, c.ext)
	if err != nil {
		return nil, err
	}
	reconciled := Reconcile(listing, persisted)
	if !cmp.Equal(persisted, reconciled, cmpopts.EquateEmpty()) {
		c.logChange(persisted, reconciled)
		if err := c.store.Save(reconciled); err != nil {
			return nil, err
		}
	}
	c.entries = reconciled
	c.logger.Debugf("catalog holds %d rule(s), %d enabled", len(reconciled), len(c.Enabled()))
	return c.Entries(), nil
}

// Entries returns a copy of the current rule list.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Enabled returns the enabled entries in catalog order.
func (c *Catalog) Enabled() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// SetEnabled toggles a rule and persists the list.
func (c *Catalog) SetEnabled(name string, enabled bool) error {
	for i := range c.entries {
		if c.entries[i].Name != name {
			continue
		}
		if c.entries[i].Enabled == enabled {
			return nil
		}
		c.entries[i].Enabled = enabled
		return c.store.Save(c.Entries())
	}
	return fmt.Errorf("%w %q", ErrUnknownRule, name)
}

func (c *Catalog) logChange(before, after []Entry) {
	prev, err := Marshal(before)
	if err != nil {
		return
	}
	curr, err := Marshal(after)
	if err != nil {
		return
	}
	if diff := config.DiffSerialized(prev, curr); diff != "" {
		c.logger.Infof("rule catalog changed:\n%s", diff)
	}
}
