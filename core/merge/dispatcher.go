package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ConflictRecord is the unit of work handed to the dispatcher: a file path
// and its three already-read revisions. Records are immutable and consumed
// exactly once.
type ConflictRecord struct {
	Path      string `json:"path"`
	Base      string `json:"base"`
	Ours      string `json:"ours"`
	Theirs    string `json:"theirs"`
	IsDeleted bool   `json:"isDeleted"`
	IsNew     bool   `json:"isNew"`
}

// Completer finalizes a merge after the batch: the VCS collaborator that
// stages the resolved paths and completes the merge commit.
type Completer interface {
	CompleteMerge(ctx context.Context, paths []string) error
}

// Recorder observes batch progress for the merge journal. Recorder errors
// never affect resolution.
type Recorder interface {
	BeginBatch(ctx context.Context, batchID, workingDir string, total int) error
	RecordOutcome(ctx context.Context, batchID, path, strategy, outcome, detail string) error
	FinishBatch(ctx context.Context, batchID string, resolved int) error
}

// Per-file outcomes recorded in the journal.
const (
	OutcomeResolved = "resolved"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Progress is invoked after each record, resolved or not.
type Progress func(done, total int, path string)

// Dispatcher validates conflict records, routes each to its resolver,
// writes results back to the working copy, and notifies the completer.
// Failures are isolated per file: one bad record never aborts the batch.
type Dispatcher struct {
	selector   *Selector
	resolvers  map[Strategy]Resolver
	workingDir string
	workers    int
	log        *slog.Logger
	completer  Completer
	recorder   Recorder
	onProgress Progress
}

type DispatcherConfig struct {
	WorkingDir string
	Workers    int
	Logger     *slog.Logger
	Completer  Completer
	Recorder   Recorder
	OnProgress Progress
}

func NewDispatcher(selector *Selector, cfg DispatcherConfig) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Dispatcher{
		selector:   selector,
		resolvers:  NewResolverSet(log),
		workingDir: cfg.WorkingDir,
		workers:    workers,
		log:        log,
		completer:  cfg.Completer,
		recorder:   cfg.Recorder,
		onProgress: cfg.OnProgress,
	}
}

// ResolveAll processes a batch of conflict records and returns the paths
// successfully resolved and written, in input order. The only error it
// returns is context cancellation; everything else is per-file and
// best-effort.
func (d *Dispatcher) ResolveAll(ctx context.Context, records []ConflictRecord) ([]string, error) {
	batchID := uuid.NewString()
	log := d.log.With("batch", batchID)

	log.Info("resolving conflict batch", "records", len(records), "workers", d.workers)

	if d.recorder != nil {
		if err := d.recorder.BeginBatch(ctx, batchID, d.workingDir, len(records)); err != nil {
			log.Debug("journal begin failed", "error", err)
		}
	}

	outcomes := make([]string, len(records))
	if err := d.runBatch(ctx, batchID, records, outcomes); err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(records))
	for i, outcome := range outcomes {
		if outcome == OutcomeResolved {
			resolved = append(resolved, records[i].Path)
		}
	}

	if d.recorder != nil {
		if err := d.recorder.FinishBatch(ctx, batchID, len(resolved)); err != nil {
			log.Debug("journal finish failed", "error", err)
		}
	}

	d.notifyCompletion(ctx, log, resolved)

	log.Info("batch complete", "resolved", len(resolved), "total", len(records))
	return resolved, nil
}

func (d *Dispatcher) runBatch(ctx context.Context, batchID string, records []ConflictRecord, outcomes []string) error {
	if d.workers == 1 {
		for i, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = d.processRecord(ctx, batchID, record)
			d.reportProgress(i+1, len(records), record.Path)
		}
		return nil
	}

	return d.runParallel(ctx, batchID, records, outcomes)
}

// runParallel fans records out to a bounded worker group. Each file's
// revisions are independent, so only progress accounting needs a lock.
func (d *Dispatcher) runParallel(ctx context.Context, batchID string, records []ConflictRecord, outcomes []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	sem := make(chan struct{}, d.workers)

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(i int, record ConflictRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = d.processRecord(ctx, batchID, record)

			mu.Lock()
			done++
			current := done
			mu.Unlock()

			d.reportProgress(current, len(records), record.Path)
		}(i, record)
	}

	wg.Wait()
	return ctx.Err()
}

// processRecord runs one record through validation, strategy selection,
// resolution, and write-back. It returns the outcome; failures are logged
// and journaled, never raised.
func (d *Dispatcher) processRecord(ctx context.Context, batchID string, record ConflictRecord) string {
	tag := d.selector.Select(record.Path)
	log := d.log.With("path", record.Path, "strategy", string(tag))

	outcome, detail := d.resolveRecord(log, record, tag)

	if d.recorder != nil {
		if err := d.recorder.RecordOutcome(ctx, batchID, record.Path, string(tag), outcome, detail); err != nil {
			log.Debug("journal record failed", "error", err)
		}
	}

	return outcome
}

func (d *Dispatcher) resolveRecord(log *slog.Logger, record ConflictRecord, tag Strategy) (outcome, detail string) {
	if err := validateRecord(record); err != nil {
		log.Warn("skipping invalid conflict record", "error", err)
		return OutcomeSkipped, err.Error()
	}

	target := d.targetPath(record.Path)
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		// The other side deleted the file; nothing to resolve.
		log.Info("target file missing, skipping")
		return OutcomeSkipped, ErrTargetMissing.Error()
	}

	resolver, ok := d.resolvers[tag]
	if !ok {
		log.Warn("no resolver for strategy")
		return OutcomeFailed, ErrNoResolver.Error()
	}

	resolved, err := resolver.Resolve(record.Ours, record.Theirs)
	if err != nil {
		log.Warn("conflict left unresolved", "error", err)
		return OutcomeFailed, err.Error()
	}

	if err := os.WriteFile(target, []byte(resolved), 0644); err != nil {
		log.Warn("failed to write resolved file", "error", err)
		return OutcomeFailed, err.Error()
	}

	log.Debug("conflict resolved")
	return OutcomeResolved, ""
}

func validateRecord(record ConflictRecord) error {
	if record.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRecord)
	}
	return nil
}

func (d *Dispatcher) targetPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.workingDir, path)
}

func (d *Dispatcher) reportProgress(done, total int, path string) {
	if d.onProgress != nil {
		d.onProgress(done, total, path)
	}
}

// notifyCompletion hands the resolved paths to the VCS collaborator. A
// completion failure is surfaced as a warning; the written files are never
// rolled back.
func (d *Dispatcher) notifyCompletion(ctx context.Context, log *slog.Logger, resolved []string) {
	if len(resolved) == 0 || d.completer == nil {
		return
	}

	if err := d.completer.CompleteMerge(ctx, resolved); err != nil {
		log.Warn("merge completion failed, resolved files were kept", "error", err)
	}
}
