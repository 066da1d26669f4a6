package itemfilter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/exapitools/npcinv/internal/filterset"
	"github.com/exapitools/npcinv/internal/state"
)

// Rule is a compiled item rule.
type Rule struct {
	pred Predicate
}

// Matches implements filterset.Matcher.
func (r *Rule) Matches(item state.ItemRecord) bool {
	return r.pred(item)
}

// Loader reads rule files from disk.
type Loader struct{}

var (
	_ filterset.Loader = Loader{}
	_ filterset.Parser = Loader{}
)

// Load compiles the rule file at path.
func (Loader) Load(path string) (filterset.Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	return compile(data)
}

// Parse compiles an inline rule document.
func (Loader) Parse(src string) (filterset.Matcher, error) {
	return compile([]byte(src))
}

func compile(data []byte) (*Rule, error) {
	var pc PredicateConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRule
		}
		return nil, fmt.Errorf("decode rule: %w", err)
	}
	pred, err := compilePredicate(pc)
	if err != nil {
		return nil, err
	}
	return &Rule{pred: pred}, nil
}
