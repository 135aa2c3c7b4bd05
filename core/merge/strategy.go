package merge

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Strategy tags the merge algebra applied to a file.
type Strategy string

const (
	StrategyCells       Strategy = "cells"
	StrategyThreads     Strategy = "threads"
	StrategySetUnion    Strategy = "set-union"
	StrategySuggestions Strategy = "suggestions"
	StrategyMetadata    Strategy = "metadata"
	StrategyKeepOurs    Strategy = "keep-ours"
)

var knownStrategies = map[Strategy]bool{
	StrategyCells:       true,
	StrategyThreads:     true,
	StrategySetUnion:    true,
	StrategySuggestions: true,
	StrategyMetadata:    true,
	StrategyKeepOurs:    true,
}

var ErrInvalidPattern = errors.New("invalid strategy pattern")

// Rule maps a path glob pattern to a strategy. Patterns match against the
// slash-normalized path and, failing that, against the base name.
type Rule struct {
	Pattern  string
	Strategy Strategy
}

// DefaultRules is the built-in strategy table, derived from the project
// file layout: structured cell documents, the comment-thread store, the
// project dictionary, the suggestion store, project metadata, and the
// regenerable draft exports (always kept from ours).
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "*.codex", Strategy: StrategyCells},
		{Pattern: "*.source", Strategy: StrategyCells},
		{Pattern: "file-comments.json", Strategy: StrategyThreads},
		{Pattern: "*.dictionary", Strategy: StrategySetUnion},
		{Pattern: "smart_edits.json", Strategy: StrategySuggestions},
		{Pattern: "metadata.json", Strategy: StrategyMetadata},
		{Pattern: "complete_drafts/**", Strategy: StrategyKeepOurs},
	}
}

const selectorCacheSize = 512

type compiledRule struct {
	pattern  string
	matcher  glob.Glob
	strategy Strategy
}

// Selector maps file paths to strategies. Custom rules take precedence
// over the built-in table; unmatched paths fall back to keep-ours, which
// is the documented default rather than an error.
type Selector struct {
	rules []compiledRule
	cache *lru.Cache[string, Strategy]
}

// NewSelector compiles custom rules followed by the default table.
func NewSelector(custom []Rule) (*Selector, error) {
	rules := make([]compiledRule, 0, len(custom)+len(DefaultRules()))

	for _, rule := range append(custom, DefaultRules()...) {
		compiled, err := compileRule(rule)
		if err != nil {
			return nil, err
		}
		rules = append(rules, compiled)
	}

	cache, err := lru.New[string, Strategy](selectorCacheSize)
	if err != nil {
		return nil, err
	}

	return &Selector{rules: rules, cache: cache}, nil
}

func compileRule(rule Rule) (compiledRule, error) {
	if !knownStrategies[rule.Strategy] {
		return compiledRule{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, rule.Strategy)
	}

	matcher, err := glob.Compile(rule.Pattern, '/')
	if err != nil {
		return compiledRule{}, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, rule.Pattern, err)
	}

	return compiledRule{pattern: rule.Pattern, matcher: matcher, strategy: rule.Strategy}, nil
}

// Select returns the strategy for a path. Pure and total: every path maps
// to a strategy.
func (s *Selector) Select(p string) Strategy {
	normalized := filepath.ToSlash(p)

	if tag, ok := s.cache.Get(normalized); ok {
		return tag
	}

	tag := s.selectUncached(normalized)
	s.cache.Add(normalized, tag)
	return tag
}

func (s *Selector) selectUncached(normalized string) Strategy {
	base := path.Base(normalized)

	for _, rule := range s.rules {
		if rule.matcher.Match(normalized) || rule.matcher.Match(base) {
			return rule.strategy
		}
	}

	return StrategyKeepOurs
}
