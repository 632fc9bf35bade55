
// Package engine is the batch price synchronization core: it partitions
// the catalog into windows, dispatches rate-limited fetch tasks, resolves
// prices cache-first, and publishes a ranked snapshot per run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Armin-kho/market-price-watch/internal/catalog"
)

// ErrBusy is returned by StartRun while a previous run is still active.
// Callers should skip the trigger, not queue it.
var ErrBusy = errors.New("a sync run is already in progress")

// interBatchPause spreads outer batches over time to stay under
// longer-window rate limits the token bucket cannot see. No pause follows
// the final batch.
const interBatchPause = 200 * time.Millisecond

type Options struct {
	WindowSize   int
	GroupSize    int
	Concurrency  int
	RateLimit    int
	RateInterval time.Duration
	Debug        bool
}

// Engine owns the run state machine and the published snapshot. One run
// at a time; a completed run replaces the snapshot atomically and a failed
// run leaves the previous snapshot untouched.
type Engine struct {
	cat      *catalog.Catalog
	resolver *Resolver
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	runWG  sync.WaitGroup

	mu          sync.Mutex
	status      Status
	snapshot    *RunSnapshot
	windowIndex int

	now func() time.Time // test hook
}

func New(cat *catalog.Catalog, resolver *Resolver, opts Options) *Engine {
	if opts.WindowSize <= 0 {
		opts.WindowSize = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.GroupSize <= 0 {
		opts.GroupSize = opts.Concurrency
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cat:      cat,
		resolver: resolver,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		status:   Status{State: StateIdle},
		now:      time.Now,
	}
}

// StartRun begins a run over the given entries (nil means the whole
// catalog) and returns immediately. While a run is active it returns
// ErrBusy instead of starting a second one against the same cache keys.
func (e *Engine) StartRun(entries []catalog.Entry) error {
	e.mu.Lock()
	if e.status.State.Busy() {
		e.mu.Unlock()
		return ErrBusy
	}
	e.status = Status{State: StateLoading}
	e.mu.Unlock()

	e.runWG.Add(1)
	go func() {
		defer e.runWG.Done()
		e.run(entries)
	}()
	return nil
}

// Snapshot returns the last published snapshot, if any run ever completed.
// The prices slice is the caller's own copy; sorting or truncating it
// cannot disturb the published state.
func (e *Engine) Snapshot() (RunSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return RunSnapshot{}, false
	}
	return RunSnapshot{
		Prices:    append([]PriceRecord(nil), e.snapshot.Prices...),
		UpdatedAt: e.snapshot.UpdatedAt,
	}, true
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// AdvanceWindow returns the current outer window of the catalog and moves
// the cyclic index forward. The window count is recomputed from the live
// catalog length on every call, so a catalog that changed size between
// runs can never slice out of range.
func (e *Engine) AdvanceWindow() []catalog.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := WindowCount(e.cat.Len(), e.opts.WindowSize)
	if count == 0 {
		return nil
	}
	idx := e.windowIndex % count
	e.windowIndex = (idx + 1) % count
	return Window(e.cat.Entries(), e.opts.WindowSize, idx)
}

// Close stops any in-flight run and waits for it to wind down.
func (e *Engine) Close() {
	e.cancel()
	e.runWG.Wait()
}

func (e *Engine) run(entries []catalog.Entry) {
	runID := uuid.NewString()[:8]
	started := e.now()

	if entries == nil {
		entries = e.cat.Entries()
	}
	if len(entries) == 0 {
		e.fail("no catalog entries to sync")
		return
	}

	batches := WindowCount(len(entries), e.opts.WindowSize)
	if e.opts.Debug {
		log.Printf("[engine] run %s: %d items in %d batches", runID, len(entries), batches)
	}

	var groups []GroupResult
	for bi := 0; bi < batches; bi++ {
		if err := e.ctx.Err(); err != nil {
			e.fail(fmt.Sprintf("run %s interrupted: %v", runID, err))
			return
		}

		batch := Window(entries, e.opts.WindowSize, bi)
		batchGroups := GroupInto(batch, e.opts.GroupSize)
		results := make([]GroupResult, len(batchGroups))

		e.setState(StateDispatching)
		disp := NewDispatcher(e.opts.Concurrency, e.opts.RateLimit, e.opts.RateInterval)
		for gi, group := range batchGroups {
			name := fmt.Sprintf("%s/b%d/g%d", runID, bi, gi)
			disp.Submit(e.ctx, name, func(ctx context.Context) error {
				recs, err := e.resolver.ResolveGroup(ctx, group)
				results[gi] = GroupResult{Records: recs, Err: err}
				return err
			})
		}

		e.setState(StateResolving)
		disp.Drain()

		e.setState(StateAggregating)
		groups = append(groups, results...)

		if bi < batches-1 {
			select {
			case <-time.After(interBatchPause):
			case <-e.ctx.Done():
			}
		}
	}

	if err := e.ctx.Err(); err != nil {
		e.fail(fmt.Sprintf("run %s interrupted: %v", runID, err))
		return
	}

	snap := Aggregate(groups, e.now())
	e.mu.Lock()
	e.snapshot = &snap
	e.status = Status{State: StateCompleted}
	e.mu.Unlock()

	log.Printf("[engine] run %s completed: %d prices in %s", runID, len(snap.Prices), time.Since(started).Round(time.Millisecond))
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.status = Status{State: s}
	e.mu.Unlock()
}

// fail marks the run Failed with a surfaced cause. The previous snapshot,
// if any, stays published.
func (e *Engine) fail(reason string) {
	e.mu.Lock()
	e.status = Status{State: StateFailed, Err: reason}
	e.mu.Unlock()
	log.Printf("[engine] %s", reason)
}
