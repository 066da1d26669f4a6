// Package itemfilter compiles YAML item rules into matchers.
//
// A rule is a predicate tree. Conditions on the same node must all hold;
// any/all/not nest further trees:
//
//	any:
//	  - rarity: Unique
//	  - class: Currency
//	    minStack: 10
package itemfilter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/exapitools/npcinv/internal/state"
)

// ErrEmptyRule is returned for a rule without conditions.
var ErrEmptyRule = errors.New("rule defines no conditions")

// PredicateConfig is the YAML form of a rule.
type PredicateConfig struct {
	Any          []PredicateConfig `yaml:"any"`
	All          []PredicateConfig `yaml:"all"`
	Not          *PredicateConfig  `yaml:"not"`
	Name         string            `yaml:"name"`
	BaseName     string            `yaml:"baseName"`
	Class        string            `yaml:"class"`
	Rarity       string            `yaml:"rarity"`
	PathPrefix   string            `yaml:"pathPrefix"`
	NameRegex    string            `yaml:"nameRegex"`
	MinItemLevel int               `yaml:"minItemLevel"`
	MinStack     int               `yaml:"minStack"`
	Attr         map[string]string `yaml:"attr"`
}

// Predicate evaluates an item.
type Predicate func(item state.ItemRecord) bool

func compilePredicate(pc PredicateConfig) (Predicate, error) {
	preds := make([]Predicate, 0)

	if len(pc.All) > 0 {
		children, err := compileChildren(pc.All)
		if err != nil {
			return nil, fmt.Errorf("all: %w", err)
		}
		preds = append(preds, func(item state.ItemRecord) bool {
			for _, p := range children {
				if !p(item) {
					return false
				}
			}
			return true
		})
	}

	if len(pc.Any) > 0 {
		children, err := compileChildren(pc.Any)
		if err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
		preds = append(preds, func(item state.ItemRecord) bool {
			for _, p := range children {
				if p(item) {
					return true
				}
			}
			return false
		})
	}

	if pc.Not != nil {
		child, err := compilePredicate(*pc.Not)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		preds = append(preds, func(item state.ItemRecord) bool { return !child(item) })
	}

	if pc.Name != "" {
		preds = append(preds, equalFold(pc.Name, func(i state.ItemRecord) string { return i.Name }))
	}
	if pc.BaseName != "" {
		preds = append(preds, equalFold(pc.BaseName, func(i state.ItemRecord) string { return i.BaseName }))
	}
	if pc.Class != "" {
		preds = append(preds, equalFold(pc.Class, func(i state.ItemRecord) string { return i.Class }))
	}
	if pc.Rarity != "" {
		preds = append(preds, equalFold(pc.Rarity, func(i state.ItemRecord) string { return i.Rarity }))
	}

	if pc.PathPrefix != "" {
		prefix := pc.PathPrefix
		preds = append(preds, func(item state.ItemRecord) bool {
			return strings.HasPrefix(item.Path, prefix)
		})
	}

	if pc.NameRegex != "" {
		rgx, err := regexp.Compile(pc.NameRegex)
		if err != nil {
			return nil, fmt.Errorf("compile name regex: %w", err)
		}
		preds = append(preds, func(item state.ItemRecord) bool {
			return rgx.MatchString(item.DisplayName())
		})
	}

	if pc.MinItemLevel > 0 {
		level := pc.MinItemLevel
		preds = append(preds, func(item state.ItemRecord) bool { return item.ItemLevel >= level })
	}
	if pc.MinStack > 0 {
		stack := pc.MinStack
		preds = append(preds, func(item state.ItemRecord) bool { return item.StackSize >= stack })
	}

	for key, want := range pc.Attr {
		key, want := key, want
		preds = append(preds, func(item state.ItemRecord) bool {
			got, ok := item.Attributes[key]
			return ok && strings.EqualFold(got, want)
		})
	}

	if len(preds) == 0 {
		return nil, ErrEmptyRule
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return func(item state.ItemRecord) bool {
		for _, p := range preds {
			if !p(item) {
				return false
			}
		}
		return true
	}, nil
}

func compileChildren(pcs []PredicateConfig) ([]Predicate, error) {
	out := make([]Predicate, 0, len(pcs))
	for i, child := range pcs {
		p, err := compilePredicate(child)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func equalFold(expected string, field func(state.ItemRecord) string) Predicate {
	return func(item state.ItemRecord) bool {
		return strings.EqualFold(field(item), expected)
	}
}
