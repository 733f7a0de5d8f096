// Package refresh runs the ingest-build-broadcast cycle, once or on a cron
// schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"agendacal/internal/agenda"
	"agendacal/internal/broadcast"
	appLog "agendacal/internal/log"
	"agendacal/internal/store"
)

// Ingester refreshes calendar sources into the store.
type Ingester interface {
	RefreshAll(ctx context.Context, now time.Time) (int, []error)
}

// Result summarizes one cycle.
type Result struct {
	Updated   int  `json:"updated"`
	Events    int  `json:"events"`
	Broadcast bool `json:"broadcast"`
}

// Runner ties ingestion, the agenda and the publisher together.
type Runner struct {
	ingest    Ingester
	agenda    *agenda.Agenda
	store     *store.Store
	publisher broadcast.Publisher
	broadcast bool
	loc       *time.Location

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu sync.Mutex // one cycle at a time
}

// Options configures a Runner.
type Options struct {
	Ingester  Ingester
	Agenda    *agenda.Agenda
	Store     *store.Store
	Publisher broadcast.Publisher
	Broadcast bool
	Location  *time.Location
}

func New(opts Options) *Runner {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		ingest:    opts.Ingester,
		agenda:    opts.Agenda,
		store:     opts.Store,
		publisher: opts.Publisher,
		broadcast: opts.Broadcast,
		loc:       loc,
		Now:       time.Now,
	}
}

// RunOnce refreshes all sources and, if any source was updated and
// broadcasting is enabled, publishes the rebuilt list. Per-source
// failures are joined into the returned error; the cycle still
// broadcasts what did succeed.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now().In(r.loc)
	var res Result

	updated, errs := r.ingest.RefreshAll(ctx, now)
	res.Updated = updated

	if updated > 0 && r.broadcast && r.publisher != nil {
		events := r.agenda.Build(r.store.Snapshot().Events, now)
		res.Events = len(events)

		env := broadcast.NewEnvelope(r.agenda.Broadcast(events), now)
		if err := r.publisher.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		} else {
			res.Broadcast = true
		}
	}

	appLog.Info("refresh cycle done", "updated", res.Updated, "events", res.Events, "broadcast", res.Broadcast, "errors", len(errs))
	return res, errors.Join(errs...)
}

// Start schedules RunOnce on spec, a standard 5-field cron expression or
// descriptor such as "@every 10m", in the runner's location. Runs that
// would overlap a still running one are skipped. The scheduler stops when
// ctx is canceled; callers can wait on the returned cron's Stop().
func (r *Runner) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", spec, err)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", spec, "location", r.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return c, nil
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
