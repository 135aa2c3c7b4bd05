package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlay_ScalarPrecedence(t *testing.T) {
	dst := DefaultConfig()
	src := &Config{
		Merge:   MergeConfig{Workers: 4},
		Logging: LoggingConfig{Level: "debug"},
	}

	Overlay(dst, src)

	assert.Equal(t, 4, dst.Merge.Workers)
	assert.Equal(t, "debug", dst.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "text", dst.Logging.Format)
	assert.True(t, dst.Journal.Enabled)
}

func TestOverlay_ZeroSourceKeepsDestination(t *testing.T) {
	dst := DefaultConfig()
	dst.Merge.Workers = 8

	Overlay(dst, &Config{})

	assert.Equal(t, 8, dst.Merge.Workers)
	assert.Equal(t, "Resolve merge conflicts", dst.VCS.CommitMessage)
}

func TestOverlay_SliceReplacesWholesale(t *testing.T) {
	dst := DefaultConfig()
	dst.Merge.Strategies = []StrategyRule{{Pattern: "*.old", Strategy: "keep-ours"}}

	src := &Config{
		Merge: MergeConfig{
			Strategies: []StrategyRule{
				{Pattern: "*.codex", Strategy: "cells"},
				{Pattern: "*.dictionary", Strategy: "set-union"},
			},
		},
	}

	Overlay(dst, src)

	assert.Len(t, dst.Merge.Strategies, 2)
	assert.Equal(t, "*.codex", dst.Merge.Strategies[0].Pattern)
}

func TestOverlay_EmptySliceKeepsDestination(t *testing.T) {
	dst := DefaultConfig()
	dst.Merge.Strategies = []StrategyRule{{Pattern: "*.codex", Strategy: "cells"}}

	Overlay(dst, &Config{})

	assert.Len(t, dst.Merge.Strategies, 1)
}

func TestOverlay_NonPointerIsNoop(t *testing.T) {
	dst := DefaultConfig()
	Overlay(*dst, Config{Merge: MergeConfig{Workers: 9}})
	assert.Equal(t, 1, dst.Merge.Workers)
}
