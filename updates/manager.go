// Package updates drives periodic NVD ingest into a datastore.
package updates

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quay/zlog"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/datastore"
	"github.com/quay/cvssinfo/nvd"
)

// UpdaterName is the updater name recorded on update operations.
const UpdaterName = `nvd-feeds`

// DefaultInterval is the period between background update runs when none is
// configured.
const DefaultInterval = 6 * time.Hour

// ErrRunning is reported by Run when an update pass is already underway.
var ErrRunning = errors.New("updates: update already running")

// Fetcher is the data source a Manager drives.
type Fetcher interface {
	// Fetch returns all current records, or an error that matches
	// [nvd.ErrUnchanged] when the fingerprint is still current.
	Fetch(context.Context, datastore.Fingerprint) ([]cvssinfo.Record, datastore.Fingerprint, error)
}

var _ Fetcher = (*nvd.Fetcher)(nil)

// Manager oversees periodic fetches and the retention policy.
//
// The Manager may be used in a one-shot fashion, configured to run
// background jobs, or both.
type Manager struct {
	store     datastore.Store
	f         Fetcher
	interval  time.Duration
	retention int

	mu sync.Mutex // serializes update passes
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInterval sets the period between background update runs.
//
// This duration will have jitter added to it, to help with smearing load on
// the feed mirrors.
func WithInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithRetention sets how many update operations are kept per updater when
// garbage collecting. Zero disables collection.
func WithRetention(n int) ManagerOption {
	return func(m *Manager) { m.retention = n }
}

// NewManager returns a Manager ready to have its Start or Run methods
// called.
func NewManager(store datastore.Store, f Fetcher, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		store:    store,
		f:        f,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.retention < 0 {
		return nil, fmt.Errorf("updates: negative retention: %d", m.retention)
	}
	if m.interval <= 0 {
		return nil, fmt.Errorf("updates: nonpositive interval: %v", m.interval)
	}
	// This gives us a ±10% range.
	m.interval += time.Duration((rand.Float64() - 0.5) / 5 * float64(m.interval))
	return m, nil
}

// Run performs one update pass: fetch with the stored fingerprint, store
// whatever came back, collect garbage. Unchanged upstream data is not an
// error.
//
// Run reports ErrRunning when called while another pass is underway.
func (m *Manager) Run(ctx context.Context) error {
	if !m.mu.TryLock() {
		return ErrRunning
	}
	defer m.mu.Unlock()
	return m.run(ctx)
}

// Kick begins an update pass in the background and returns immediately. It
// reports ErrRunning when a pass is already underway; the pass's outcome is
// logged, not returned.
//
// The provided context should outlive the caller, or the pass is cut short
// with it.
func (m *Manager) Kick(ctx context.Context) error {
	if !m.mu.TryLock() {
		return ErrRunning
	}
	go func() {
		defer m.mu.Unlock()
		if err := m.run(ctx); err != nil {
			zlog.Error(ctx).Err(err).Msg("update failed")
		}
	}()
	return nil
}

func (m *Manager) run(ctx context.Context) error {
	ctx = zlog.ContextWithValues(ctx,
		"component", "updates/Manager.Run",
		"updater", UpdaterName)
	prev, err := m.store.GetLatestFingerprint(ctx, UpdaterName)
	if err != nil {
		return err
	}
	recs, fp, err := m.f.Fetch(ctx, prev)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, nvd.ErrUnchanged):
		zlog.Info(ctx).Msg("data unchanged, skipping update")
		return nil
	default:
		return err
	}
	ref, err := m.store.UpdateVectors(ctx, UpdaterName, fp, recs)
	if err != nil {
		return err
	}
	zlog.Info(ctx).
		Stringer("ref", ref).
		Int("count", len(recs)).
		Msg("update finished")
	if m.retention != 0 {
		switch n, err := m.store.GC(ctx, m.retention); {
		case err != nil:
			zlog.Warn(ctx).Err(err).Msg("garbage collection failed")
		case n != 0:
			zlog.Debug(ctx).Int64("count", n).Msg("expired update operations")
		}
	}
	return nil
}

// Start performs an update pass immediately and then again on every tick
// until the context is canceled.
//
// Start is designed to be ran as a goroutine. It must only be called once
// between context cancellations.
func (m *Manager) Start(ctx context.Context) error {
	ctx = zlog.ContextWithValues(ctx, "component", "updates/Manager.Start")
	zlog.Info(ctx).Msg("starting initial update")
	if err := m.Run(ctx); err != nil {
		zlog.Error(ctx).Err(err).Msg("update failed")
	}
	zlog.Info(ctx).Str("interval", m.interval.String()).Msg("starting background updates")
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := m.Run(ctx); err != nil && !errors.Is(err, ErrRunning) {
				zlog.Error(ctx).Err(err).Msg("update failed")
			}
		}
	}
}
