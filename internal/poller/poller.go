// Package poller drives the periodic fetch → align → classify → publish cycle.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/linecompare/internal/calculator"
	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/parserutil"
	"github.com/Vodeneev/linecompare/internal/pkg/performance"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
)

// Hook is called after every publish. moves is empty for stale snapshots.
type Hook func(ctx context.Context, snap *models.Snapshot, moves []calculator.LineMovement)

type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	MaxParallel  int
	Reference    string
	// Sources is the snapshot column order. Defaults to producer order.
	Sources []string
	Tracker *performance.Tracker
	Now     func() time.Time
}

type Poller struct {
	producers []parsers.Producer
	store     *snapshot.Store
	opts      Options

	hooksMu sync.RWMutex
	hooks   []Hook

	// runMu serializes cycles; everything below it is owned by the running cycle.
	runMu sync.Mutex
	cycle int64
	prev  *models.Snapshot

	ctxMu  sync.Mutex
	runCtx context.Context
}

func New(producers []parsers.Producer, store *snapshot.Store, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	if len(opts.Sources) == 0 {
		for _, p := range producers {
			opts.Sources = append(opts.Sources, p.Name())
		}
	}
	if opts.Reference == "" && len(opts.Sources) > 0 {
		opts.Reference = opts.Sources[0]
	}
	if opts.Tracker == nil {
		opts.Tracker = performance.GetTracker()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{producers: producers, store: store, opts: opts}
}

// OnPublish registers a hook run after each published snapshot.
func (p *Poller) OnPublish(h Hook) {
	p.hooksMu.Lock()
	defer p.hooksMu.Unlock()
	p.hooks = append(p.hooks, h)
}

// Seed sets the snapshot the first cycle diffs against, e.g. one restored from storage.
func (p *Poller) Seed(prev *models.Snapshot) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	p.prev = prev
	if prev != nil && prev.Cycle > p.cycle {
		p.cycle = prev.Cycle
	}
}

// RunCycle runs one complete cycle and publishes its snapshot. It returns an
// error only when nothing was published: the context ended mid-cycle or the
// configuration is inconsistent. A failed reference source still publishes a
// stale snapshot and returns it.
func (p *Poller) RunCycle(ctx context.Context) (*models.Snapshot, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.runCycleLocked(ctx)
}

func (p *Poller) runCycleLocked(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	p.cycle++
	cycleID := p.cycle

	results := parserutil.FetchAll(ctx, p.producers, parserutil.FetchOptions{
		Timeout:     p.opts.FetchTimeout,
		MaxParallel: p.opts.MaxParallel,
		OnError: func(pr parsers.Producer, err error) {
			slog.Warn("Producer failed", "cycle_id", cycleID, "source", pr.Name(), "error", err)
		},
	})
	fetchDur := time.Since(start)

	// An abandoned cycle must not replace what readers see.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle %d abandoned: %w", cycleID, err)
	}

	buildStart := time.Now()
	in := calculator.Input{
		Cycle:     cycleID,
		Now:       p.opts.Now(),
		Reference: p.opts.Reference,
		Sources:   p.opts.Sources,
		Results:   results,
	}
	snap, status, err := calculator.BuildSnapshot(in)

	var moves []calculator.LineMovement
	switch {
	case errors.Is(err, calculator.ErrReferenceUnavailable):
		slog.Warn("Reference source failed, publishing last good events as stale",
			"cycle_id", cycleID, "reference", p.opts.Reference, "error", err)
		snap = calculator.CarryOver(p.prev, in, status)
	case err != nil:
		return nil, fmt.Errorf("cycle %d: %w", cycleID, err)
	default:
		moves = calculator.AnnotateChanges(p.prev, snap)
		p.prev = snap
	}
	buildDur := time.Since(buildStart)

	p.store.Publish(snap)
	total := time.Since(start)
	p.opts.Tracker.RecordCycle(fetchDur, buildDur, total, snap.Status, snap.Stale)

	slog.Info("Cycle published",
		"cycle_id", cycleID,
		"events", len(snap.Events),
		"moves", len(moves),
		"stale", snap.Stale,
		"degraded", snap.Degraded(),
		"duration", total)

	p.hooksMu.RLock()
	hooks := append([]Hook(nil), p.hooks...)
	p.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ctx, snap, moves)
	}

	return snap, nil
}

// Trigger starts an out-of-band cycle unless one is already running.
// It reports whether a cycle was started.
func (p *Poller) Trigger() bool {
	if !p.runMu.TryLock() {
		return false
	}
	ctx := p.baseContext()
	go func() {
		defer p.runMu.Unlock()
		if _, err := p.runCycleLocked(ctx); err != nil {
			slog.Error("Triggered cycle failed", "error", err)
		}
	}()
	return true
}

// Run executes a cycle immediately and then every Interval until ctx is done.
// Cycles never overlap; a tick that arrives while one is running is skipped.
func (p *Poller) Run(ctx context.Context) error {
	p.ctxMu.Lock()
	p.runCtx = ctx
	p.ctxMu.Unlock()

	logger := cronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	spec := fmt.Sprintf("@every %s", p.opts.Interval)
	if _, err := c.AddFunc(spec, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	p.tick(ctx)

	c.Start()
	slog.Info("Poller started", "interval", p.opts.Interval, "sources", p.opts.Sources, "reference", p.opts.Reference)

	<-ctx.Done()
	<-c.Stop().Done()
	// Wait for a triggered cycle still in flight.
	p.runMu.Lock()
	p.runMu.Unlock()
	slog.Info("Poller stopped")
	return nil
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := p.RunCycle(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Cycle failed", "error", err)
	}
}

func (p *Poller) baseContext() context.Context {
	p.ctxMu.Lock()
	defer p.ctxMu.Unlock()
	if p.runCtx != nil {
		return p.runCtx
	}
	return context.Background()
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
