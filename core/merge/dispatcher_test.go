package merge

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (c *fakeCompleter) CompleteMerge(_ context.Context, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append([]string{}, paths...)
	return c.err
}

type recordedOutcome struct {
	path     string
	strategy string
	outcome  string
	detail   string
}

type fakeRecorder struct {
	mu       sync.Mutex
	began    bool
	total    int
	outcomes []recordedOutcome
	finished bool
	resolved int
}

func (r *fakeRecorder) BeginBatch(_ context.Context, _, _ string, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.began = true
	r.total = total
	return nil
}

func (r *fakeRecorder) RecordOutcome(_ context.Context, _, path, strategy, outcome, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{path: path, strategy: strategy, outcome: outcome, detail: detail})
	return nil
}

func (r *fakeRecorder) FinishBatch(_ context.Context, _ string, resolved int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	r.resolved = resolved
	return nil
}

func newTestDispatcher(t *testing.T, cfg DispatcherConfig) (*Dispatcher, string) {
	t.Helper()

	dir := t.TempDir()
	cfg.WorkingDir = dir

	selector, err := NewSelector(nil)
	require.NoError(t, err)

	return NewDispatcher(selector, cfg), dir
}

func writeWorkingFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readWorkingFile(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestDispatcher_ResolvesAndWritesBack(t *testing.T) {
	d, dir := newTestDispatcher(t, DispatcherConfig{})
	writeWorkingFile(t, dir, "project.dictionary", "alpha\nbeta")

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "project.dictionary", Ours: "alpha\nbeta", Theirs: "beta\ngamma"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"project.dictionary"}, resolved)
	assert.Equal(t, "alpha\nbeta\ngamma", readWorkingFile(t, dir, "project.dictionary"))
}

func TestDispatcher_SkipsInvalidRecord(t *testing.T) {
	rec := &fakeRecorder{}
	d, dir := newTestDispatcher(t, DispatcherConfig{Recorder: rec})
	writeWorkingFile(t, dir, "project.dictionary", "alpha")

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "", Ours: "x", Theirs: "y"},
		{Path: "project.dictionary", Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"project.dictionary"}, resolved)
	require.Len(t, rec.outcomes, 2)
	assert.Equal(t, OutcomeSkipped, rec.outcomes[0].outcome)
	assert.Equal(t, OutcomeResolved, rec.outcomes[1].outcome)
}

func TestDispatcher_SkipsMissingTargetFile(t *testing.T) {
	d, _ := newTestDispatcher(t, DispatcherConfig{})

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "gone.dictionary", Ours: "a", Theirs: "b"},
	})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestDispatcher_FailedRecordDoesNotAbortBatch(t *testing.T) {
	rec := &fakeRecorder{}
	d, dir := newTestDispatcher(t, DispatcherConfig{Recorder: rec})
	writeWorkingFile(t, dir, "broken.codex", "{not json")
	writeWorkingFile(t, dir, "project.dictionary", "alpha")

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "broken.codex", Ours: "{not json", Theirs: "{not json either"},
		{Path: "project.dictionary", Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"project.dictionary"}, resolved)
	require.Len(t, rec.outcomes, 2)
	assert.Equal(t, OutcomeFailed, rec.outcomes[0].outcome)
	assert.NotEmpty(t, rec.outcomes[0].detail)

	// A failed resolution never touches the working copy.
	assert.Equal(t, "{not json", readWorkingFile(t, dir, "broken.codex"))
}

func TestDispatcher_NotifiesCompleterWithResolvedPaths(t *testing.T) {
	completer := &fakeCompleter{}
	d, dir := newTestDispatcher(t, DispatcherConfig{Completer: completer})
	writeWorkingFile(t, dir, "project.dictionary", "alpha")

	_, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "project.dictionary", Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"project.dictionary"}, completer.paths)
}

func TestDispatcher_CompleterSkippedWhenNothingResolved(t *testing.T) {
	completer := &fakeCompleter{}
	d, _ := newTestDispatcher(t, DispatcherConfig{Completer: completer})

	_, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "missing.dictionary", Ours: "a", Theirs: "b"},
	})
	require.NoError(t, err)

	assert.Empty(t, completer.paths)
}

func TestDispatcher_CompleterFailureTolerated(t *testing.T) {
	completer := &fakeCompleter{err: assert.AnError}
	d, dir := newTestDispatcher(t, DispatcherConfig{Completer: completer})
	writeWorkingFile(t, dir, "project.dictionary", "alpha")

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "project.dictionary", Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"project.dictionary"}, resolved)
}

func TestDispatcher_RecorderObservesBatchLifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	d, dir := newTestDispatcher(t, DispatcherConfig{Recorder: rec})
	writeWorkingFile(t, dir, "project.dictionary", "alpha")

	_, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "project.dictionary", Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)

	assert.True(t, rec.began)
	assert.Equal(t, 1, rec.total)
	assert.True(t, rec.finished)
	assert.Equal(t, 1, rec.resolved)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, string(StrategySetUnion), rec.outcomes[0].strategy)
}

func TestDispatcher_ProgressReportedPerRecord(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
		last  int
	)
	d, dir := newTestDispatcher(t, DispatcherConfig{
		OnProgress: func(done, total int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			last = done
			assert.Equal(t, 2, total)
		},
	})
	writeWorkingFile(t, dir, "a.dictionary", "a")
	writeWorkingFile(t, dir, "b.dictionary", "b")

	_, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: "a.dictionary", Ours: "a", Theirs: "x"},
		{Path: "b.dictionary", Ours: "b", Theirs: "y"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, last)
}

func TestDispatcher_ParallelMatchesSequential(t *testing.T) {
	records := make([]ConflictRecord, 0, 8)

	setupDir := func(d string) {
		for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			writeWorkingFile(t, d, name+".dictionary", name)
		}
	}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		records = append(records, ConflictRecord{
			Path: name + ".dictionary", Ours: name, Theirs: name + "2",
		})
	}

	seq, seqDir := newTestDispatcher(t, DispatcherConfig{Workers: 1})
	setupDir(seqDir)
	par, parDir := newTestDispatcher(t, DispatcherConfig{Workers: 4})
	setupDir(parDir)

	seqResolved, err := seq.ResolveAll(context.Background(), records)
	require.NoError(t, err)
	parResolved, err := par.ResolveAll(context.Background(), records)
	require.NoError(t, err)

	// Resolved paths come back in input order either way.
	assert.Equal(t, seqResolved, parResolved)
	for _, record := range records {
		assert.Equal(t,
			readWorkingFile(t, seqDir, record.Path),
			readWorkingFile(t, parDir, record.Path))
	}
}

func TestDispatcher_ContextCancellation(t *testing.T) {
	d, dir := newTestDispatcher(t, DispatcherConfig{})
	writeWorkingFile(t, dir, "a.dictionary", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ResolveAll(ctx, []ConflictRecord{
		{Path: "a.dictionary", Ours: "a", Theirs: "b"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_AbsolutePathUsedVerbatim(t *testing.T) {
	d, _ := newTestDispatcher(t, DispatcherConfig{})

	other := t.TempDir()
	target := filepath.Join(other, "project.dictionary")
	require.NoError(t, os.WriteFile(target, []byte("alpha"), 0644))

	resolved, err := d.ResolveAll(context.Background(), []ConflictRecord{
		{Path: target, Ours: "alpha", Theirs: "beta"},
	})
	require.NoError(t, err)

	require.Len(t, resolved, 1)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta", string(data))
}
