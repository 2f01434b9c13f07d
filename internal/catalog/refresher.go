package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LoadFunc produces a fresh snapshot.
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// Refresher reloads the catalog on a cron schedule and publishes each
// successful load. Failed loads keep the current snapshot.
type Refresher struct {
	cron    *cron.Cron
	store   *Store
	load    LoadFunc
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	entryID cron.EntryID
}

// NewRefresher schedules load with a standard five-field cron expression.
func NewRefresher(store *Store, schedule string, load LoadFunc, logger *zap.Logger) (*Refresher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Refresher{
		cron:    cron.New(),
		store:   store,
		load:    load,
		logger:  logger,
		timeout: time.Minute,
	}

	id, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		_ = r.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("adding cron entry %q: %w", schedule, err)
	}
	r.entryID = id

	return r, nil
}

// Refresh loads and publishes a snapshot immediately.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		r.logger.Warn("catalog refresh failed, keeping current snapshot",
			zap.Uint64("version", r.store.Snapshot().Version()),
			zap.Error(err),
		)
		return err
	}

	version := r.store.Publish(snap)
	r.logger.Info("catalog refreshed",
		zap.String("source", snap.Source()),
		zap.Int("records", snap.Len()),
		zap.Uint64("version", version),
	)
	return nil
}

// Next returns the time of the next scheduled refresh.
func (r *Refresher) Next() time.Time {
	return r.cron.Entry(r.entryID).Next
}

func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
