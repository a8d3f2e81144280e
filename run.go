package fastgrep

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// Result summarizes one Run invocation (spec §6 "Results / exit code").
type Result struct {
	Matched bool
	Stats   Snapshot
}

// Run wires the Traverser, the scanner pool, and the Output collector
// into the single pipeline spec §4 describes, and drives it to
// completion over roots using pattern. It is the library entry point
// cmd/fastgrep's CLI layer calls into; everything upstream of it (flag
// parsing, config file resolution) is the external "CLI/config layer"
// spec §1 treats as a collaborator rather than core scope.
func Run(ctx context.Context, pattern string, roots []string, opts ...Option) (Result, error) {
	cfg := applyOptions(opts)

	matcher, err := NewMatcher(cfg.Engine, MatcherSpec{
		Pattern:    pattern,
		IgnoreCase: cfg.IgnoreCase,
		WholeWord:  cfg.WholeWord,
		Literal:    cfg.Literal,
	})
	if err != nil {
		return Result{}, err
	}

	cfg.Types.Compile()
	stats := NewStats()

	fileQueue := newQueue[FileIdentity](cfg.QueueCapacity)
	matchQueue := newQueue[MatchGroup](cfg.QueueCapacity)

	trav := NewTraverser(TraverserOptions{
		Recurse:       cfg.Recurse,
		FollowSymlink: cfg.FollowSymlink,
		DirWorkers:    cfg.DirWorkers,
		DirFilter:     cfg.DirFilter,
		Types:         cfg.Types,
		Stats:         stats,
	}, fileQueue)

	sink := cfg.Sink
	if sink == nil {
		sink = NewTerminalSink(os.Stdout, ResolveColor(cfg.Color, os.Stdout))
	}
	collector := NewOutputCollector(matchQueue, sink)

	var scanWG sync.WaitGroup
	for i := 0; i < cfg.ScanWorkers; i++ {
		pool := &scannerPool{
			matcher:   matcher,
			wholeWord: cfg.WholeWord,
			in:        fileQueue,
			out:       matchQueue,
			reportErr: cfg.ReportErr,
			stats:     stats,
		}
		scanWG.Add(1)
		go func() {
			defer scanWG.Done()
			pool.Run(ctx)
		}()
	}

	var collectorDone sync.WaitGroup
	collectorDone.Add(1)
	go func() {
		defer collectorDone.Done()
		collector.Run()
	}()

	trav.Run(ctx, roots)
	scanWG.Wait()
	matchQueue.Close()
	collectorDone.Wait()

	stats.Finish()
	snapshot := stats.Snapshot()

	if cfg.StatsFile != "" {
		if err := appendStatsFile(cfg.StatsFile, snapshot); err != nil {
			cfg.ReportErr(err)
		}
	}

	return Result{Matched: collector.MatchedAny(), Stats: snapshot}, collector.Err()
}

// appendStatsFile appends one JSON line per run to path, guarded by an
// advisory lock so two concurrent fastgrep invocations sharing a
// --stats-file never interleave their writes (spec §7, SPEC_FULL.md
// §B). Grounded on gofrs/flock, the advisory-locking library the rest
// of the pack reaches for around shared append-only files.
func appendStatsFile(path string, snap Snapshot) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock stats file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stats file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}
