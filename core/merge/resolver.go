// Package merge implements loom's three-way conflict resolution engine: a
// per-file-type resolver dispatch built around a structured-cell merge that
// reconciles divergent edit histories and preserves cell ordering.
package merge

import (
	"errors"
	"log/slog"
)

var (
	ErrInvalidRecord   = errors.New("invalid conflict record")
	ErrTargetMissing   = errors.New("target file missing")
	ErrUnknownStrategy = errors.New("unknown merge strategy")
	ErrNoResolver      = errors.New("no resolver registered for strategy")
)

// Resolver merges the local and remote revisions of one file into the
// resolved text. Resolvers are pure: no I/O, no shared state.
type Resolver interface {
	Resolve(ours, theirs string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ours, theirs string) (string, error)

func (f ResolverFunc) Resolve(ours, theirs string) (string, error) {
	return f(ours, theirs)
}

// NewResolverSet builds the full resolver table, one entry per strategy.
func NewResolverSet(log *slog.Logger) map[Strategy]Resolver {
	if log == nil {
		log = slog.Default()
	}

	return map[Strategy]Resolver{
		StrategyCells:       &CellResolver{log: log},
		StrategyThreads:     &ThreadResolver{},
		StrategySetUnion:    ResolverFunc(ResolveSetUnion),
		StrategySuggestions: &SuggestionResolver{log: log},
		StrategyMetadata:    ResolverFunc(ResolveMetadata),
		StrategyKeepOurs:    ResolverFunc(ResolveKeepOurs),
	}
}
