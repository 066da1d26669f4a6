// Package filterset holds the compiled matchers of the enabled rules.
package filterset

import (
	"errors"
	"fmt"
	"os"

	"github.com/exapitools/npcinv/internal/catalog"
	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/util"
)

// ErrRuleFileMissing reports an enabled rule whose file no longer exists.
var ErrRuleFileMissing = errors.New("rule file not found")

// Matcher decides whether an item satisfies a rule.
type Matcher interface {
	Matches(item state.ItemRecord) bool
}

// Loader compiles a rule file into a Matcher.
type Loader interface {
	Load(path string) (Matcher, error)
}

// Parser compiles an inline rule expression.
type Parser interface {
	Parse(src string) (Matcher, error)
}

// LoadError records a rule that could not be added to the set.
type LoadError struct {
	Rule string `json:"rule"`
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("rule %q (%s): %v", e.Rule, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type namedMatcher struct {
	name    string
	matcher Matcher
}

// FilterSet is an immutable ordered set of matchers. The zero value and nil
// match nothing.
type FilterSet struct {
	matchers []namedMatcher
}

// Build loads every enabled entry. Missing or malformed rules are logged and
// skipped; the remaining rules are still loaded.
func Build(entries []catalog.Entry, loader Loader, logger *util.Logger) (*FilterSet, []*LoadError) {
	set := &FilterSet{}
	var failures []*LoadError
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if _, err := os.Stat(e.Location); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = ErrRuleFileMissing
			}
			failures = append(failures, &LoadError{Rule: e.Name, Path: e.Location, Err: err})
			continue
		}
		m, err := loader.Load(e.Location)
		if err != nil {
			failures = append(failures, &LoadError{Rule: e.Name, Path: e.Location, Err: err})
			continue
		}
		set.matchers = append(set.matchers, namedMatcher{name: e.Name, matcher: m})
	}
	for _, f := range failures {
		logger.Errorf("load rule: %v", f)
	}
	logger.Infof("loaded %d rule(s), %d failed", len(set.matchers), len(failures))
	return set, failures
}

// Matches reports whether any rule accepts the item.
func (s *FilterSet) Matches(item state.ItemRecord) bool {
	_, ok := s.Match(item)
	return ok
}

// Match returns the name of the first rule accepting the item.
func (s *FilterSet) Match(item state.ItemRecord) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, m := range s.matchers {
		if m.matcher.Matches(item) {
			return m.name, true
		}
	}
	return "", false
}

// Len returns the number of loaded rules.
func (s *FilterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.matchers)
}

// Rules returns the loaded rule names in order.
func (s *FilterSet) Rules() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.matchers))
	for i, m := range s.matchers {
		names[i] = m.name
	}
	return names
}
