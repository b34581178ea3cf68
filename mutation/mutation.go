// Package mutation applies server mutations optimistically to the keyed cache.
//
// A run cancels in-flight fetches for the keys it touches, snapshots them,
// writes a speculative value and only then calls the backend. On success the
// strategy reconciles the server response into the cache; on failure every
// snapshot is restored. Either way the touched keys are invalidated afterwards
// so the next fetch brings the cache back in line with the server.
package mutation

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"alumnihub.com/alumni-feed/cache"
)

// Store is the cache surface a mutation drives. *cache.Cache implements it.
type Store interface {
	Atomically(fn func(tx cache.Txn))
	Invalidate(keys ...cache.QueryKey)
}

// Strategy describes one entity action: which keys it touches, how it changes
// them before and after the server answers, and the backend call itself.
// Speculate and Reconcile must be pure and must not modify prior or current.
type Strategy[P, R any] interface {
	Name() string
	Keys(payload P) []cache.QueryKey
	Speculate(key cache.QueryKey, prior any, payload P) any
	Call(ctx context.Context, payload P) (R, error)
	Reconcile(key cache.QueryKey, current any, payload P, response R) any
}

// Settler is implemented by strategies that invalidate a different set of keys
// than they touch, e.g. a deleted post whose singleton must not be refetched.
type Settler[P any] interface {
	SettleKeys(payload P) []cache.QueryKey
}

// Committer is implemented by strategies that change keys outside their
// snapshot set once the server confirms the action. Commit runs in the same
// transaction as Reconcile and is skipped when the call fails.
type Committer[P, R any] interface {
	Commit(tx cache.Txn, payload P, response R)
}

type sentinel string

const (
	// Tombstone returned from Speculate or Reconcile removes the entry.
	Tombstone sentinel = "mutation: tombstone"
	// Keep returned from Reconcile leaves the entry as it is.
	Keep sentinel = "mutation: keep"
)

// NoReconcile can be embedded by strategies whose speculative value needs no
// correction once the server confirms it.
type NoReconcile[P, R any] struct{}

// Reconcile keeps the speculative value.
func (NoReconcile[P, R]) Reconcile(cache.QueryKey, any, P, R) any {
	return Keep
}

// Snapshot records a key's value right before a speculative write.
type Snapshot struct {
	Key     cache.QueryKey
	Prior   any
	Existed bool
}

// Callbacks are invoked as a run settles. All fields are optional.
type Callbacks[R any] struct {
	OnSuccess func(response R)
	OnError   func(err error)
	OnSettled func(response R, err error)
}

// Mutation runs one Strategy against a Store.
type Mutation[P, R any] struct {
	strategy Strategy[P, R]
	store    Store
	log      *logrus.Entry
}

// Option configures a Mutation.
type Option func(*options)

type options struct {
	log *logrus.Entry
}

// WithLogger sets the log entry used by the mutation.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New binds strategy to store.
func New[P, R any](store Store, strategy Strategy[P, R], opts ...Option) *Mutation[P, R] {
	cfg := options{log: logrus.StandardLogger().WithField("component", "mutation")}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Mutation[P, R]{
		strategy: strategy,
		store:    store,
		log:      cfg.log.WithField("mutation", strategy.Name()),
	}
}

// Name returns the strategy name.
func (m *Mutation[P, R]) Name() string {
	return m.strategy.Name()
}

// Start runs the mutation and waits for it to settle. The returned error is
// the backend error, after the cache has been rolled back.
func (m *Mutation[P, R]) Start(ctx context.Context, payload P, callbacks ...Callbacks[R]) (R, error) {
	return m.Go(ctx, payload, callbacks...).Wait()
}

// Go writes the speculative state before returning and settles the backend
// call in the background. Mutations started one after another from the same
// goroutine therefore apply their speculative writes in call order.
func (m *Mutation[P, R]) Go(ctx context.Context, payload P, callbacks ...Callbacks[R]) *Run[R] {
	run := newRun[R]()
	keys := m.strategy.Keys(payload)
	snapshots := make([]Snapshot, 0, len(keys))

	m.store.Atomically(func(tx cache.Txn) {
		for _, key := range keys {
			tx.CancelInFlight(key)
		}
		for _, key := range keys {
			prior, existed := tx.Lookup(key)
			snapshots = append(snapshots, Snapshot{Key: key, Prior: prior, Existed: existed})
			write(tx, key, m.strategy.Speculate(key, prior, payload))
		}
	})
	run.setState(StatePending)
	m.log.WithField("keys", len(keys)).Debug("speculative write applied")

	go m.settle(ctx, run, payload, snapshots, callbacks)

	return run
}

func (m *Mutation[P, R]) settle(ctx context.Context, run *Run[R], payload P, snapshots []Snapshot, callbacks []Callbacks[R]) {
	started := time.Now()
	response, err := m.strategy.Call(ctx, payload)
	observeDuration(m.strategy.Name(), time.Since(started))

	if err == nil {
		m.reconcile(payload, response, snapshots)
		run.setState(StateSucceeded)
		countOutcome(m.strategy.Name(), outcomeCommitted)
		for _, cb := range callbacks {
			if cb.OnSuccess != nil {
				cb.OnSuccess(response)
			}
		}
	} else {
		err = fmt.Errorf("%s: %w", m.strategy.Name(), err)
		m.rollback(snapshots)
		run.setState(StateFailed)
		countOutcome(m.strategy.Name(), outcomeRolledBack)
		m.log.WithError(err).Warn("mutation rolled back")
		for _, cb := range callbacks {
			if cb.OnError != nil {
				cb.OnError(err)
			}
		}
	}

	m.store.Invalidate(m.settleKeys(payload, snapshots)...)
	for _, cb := range callbacks {
		if cb.OnSettled != nil {
			cb.OnSettled(response, err)
		}
	}

	run.finish(response, err)
	m.log.Debug("mutation settled")
}

func (m *Mutation[P, R]) reconcile(payload P, response R, snapshots []Snapshot) {
	m.store.Atomically(func(tx cache.Txn) {
		for _, snap := range snapshots {
			current, found := tx.Lookup(snap.Key)
			if !found {
				// Removed while the call was in flight, e.g. by a session reset.
				continue
			}
			next := m.strategy.Reconcile(snap.Key, current, payload, response)
			if next == Keep {
				continue
			}
			write(tx, snap.Key, next)
		}
		if committer, ok := m.strategy.(Committer[P, R]); ok {
			committer.Commit(tx, payload, response)
		}
	})
}

func (m *Mutation[P, R]) rollback(snapshots []Snapshot) {
	m.store.Atomically(func(tx cache.Txn) {
		for _, snap := range snapshots {
			if !snap.Existed {
				tx.Remove(snap.Key)
				continue
			}
			tx.Set(snap.Key, snap.Prior)
		}
	})
}

func (m *Mutation[P, R]) settleKeys(payload P, snapshots []Snapshot) []cache.QueryKey {
	if settler, ok := m.strategy.(Settler[P]); ok {
		return settler.SettleKeys(payload)
	}

	keys := make([]cache.QueryKey, 0, len(snapshots))
	for _, snap := range snapshots {
		keys = append(keys, snap.Key)
	}

	return keys
}

func write(tx cache.Txn, key cache.QueryKey, value any) {
	if value == Tombstone {
		tx.Remove(key)
		return
	}
	tx.Set(key, value)
}
