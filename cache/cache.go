package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FetchFunc loads the server value for key.
type FetchFunc func(ctx context.Context, key QueryKey) (any, error)

// Refetcher is signalled when keys go stale. It decides when and how to fetch again.
type Refetcher interface {
	Refetch(key QueryKey)
}

// WatchFunc receives the new value of a watched key. A nil value means the entry is gone.
type WatchFunc func(value any)

// EntryInfo describes the current state of one cache entry.
type EntryInfo struct {
	Value     any
	Stale     bool
	Fetching  bool
	UpdatedAt time.Time
}

// Txn is the view of the cache inside Atomically. Its methods must not be used
// after the callback returns.
type Txn interface {
	Get(key QueryKey) any
	Lookup(key QueryKey) (value any, found bool)
	Set(key QueryKey, value any)
	Remove(key QueryKey)
	CancelInFlight(key QueryKey)
}

type entry struct {
	key       QueryKey
	value     any
	hasValue  bool
	stale     bool
	epoch     uint64
	updatedAt time.Time
	inflight  *inflightFetch
}

type inflightFetch struct {
	cancel context.CancelFunc
}

type watcher struct {
	id uint64
	fn WatchFunc
}

type notification struct {
	fns   []WatchFunc
	value any
}

// Cache is an in-memory store of server state addressed by QueryKey.
//
// Cache is safe for concurrent use. Values handed to Set are retained as-is and
// returned by Get; callers must treat them as immutable and write changes back
// through Set or Update.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	watchers  map[string][]watcher
	nextWatch uint64
	refetcher Refetcher
	clock     func() time.Time
	log       *logrus.Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithRefetcher sets the collaborator signalled by Invalidate.
func WithRefetcher(refetcher Refetcher) Option {
	return func(c *Cache) {
		c.refetcher = refetcher
	}
}

// WithLogger sets the log entry used by the cache.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		watchers: make(map[string][]watcher),
		clock:    time.Now,
		log:      logrus.StandardLogger().WithField("component", "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetRefetcher replaces the refetch collaborator.
func (c *Cache) SetRefetcher(refetcher Refetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refetcher = refetcher
}

// Get returns the cached value for key, or nil when there is none.
func (c *Cache) Get(key QueryKey) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, _ := c.lookupLocked(key)
	return value
}

// Lookup returns the cached value for key and whether one is present.
func (c *Cache) Lookup(key QueryKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lookupLocked(key)
}

// Entry reports value and status for key.
func (c *Cache) Entry(key QueryKey) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key.String()]
	if !exists || !e.hasValue {
		return EntryInfo{}, false
	}

	return EntryInfo{
		Value:     e.value,
		Stale:     e.stale,
		Fetching:  e.inflight != nil,
		UpdatedAt: e.updatedAt,
	}, true
}

// Set replaces the value stored under key and marks it fresh.
func (c *Cache) Set(key QueryKey, value any) {
	c.Atomically(func(tx Txn) {
		tx.Set(key, value)
	})
}

// Update stores update(old) under key. old is nil when the key is absent.
func (c *Cache) Update(key QueryKey, update func(old any) any) {
	c.Atomically(func(tx Txn) {
		tx.Set(key, update(tx.Get(key)))
	})
}

// Remove deletes the entry for key, dropping any fetch still in flight for it.
func (c *Cache) Remove(key QueryKey) {
	c.Atomically(func(tx Txn) {
		tx.Remove(key)
	})
}

// CancelInFlight detaches and cancels the pending fetch for key, if any, so its
// result can no longer overwrite the entry.
func (c *Cache) CancelInFlight(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelInFlightLocked(key)
}

// Invalidate marks the entries for keys stale and signals the refetcher. Keys
// without an entry are ignored.
func (c *Cache) Invalidate(keys ...QueryKey) {
	c.mu.Lock()
	refetcher := c.refetcher
	stale := make([]QueryKey, 0, len(keys))
	for _, key := range keys {
		e, exists := c.entries[key.String()]
		if !exists {
			continue
		}
		e.stale = true
		e.epoch++
		stale = append(stale, e.key)
	}
	c.mu.Unlock()

	if refetcher == nil {
		return
	}
	for _, key := range stale {
		refetcher.Refetch(key)
	}
}

// Atomically runs fn with exclusive access to the cache. Watchers are notified
// once fn has returned, so no reader sees a partial set of fn's writes.
func (c *Cache) Atomically(fn func(tx Txn)) {
	c.mu.Lock()
	tx := &txn{cache: c, changed: make(map[string]struct{})}
	fn(tx)
	tx.done = true
	notifications := c.collectNotificationsLocked(tx.changed)
	c.mu.Unlock()

	dispatch(notifications)
}

// Fetch runs fetch as the in-flight request for key and stores its result. The
// result is dropped with ErrFetchSuperseded when the fetch was cancelled or
// replaced, or the entry was removed, before it finished.
func (c *Cache) Fetch(ctx context.Context, key QueryKey, fetch FetchFunc) (any, error) {
	return c.fetch(ctx, key, fetch, false)
}

// refetchStale is Fetch for background refetches. It does nothing unless the
// entry still exists and is stale, so a refetch that starts after a newer
// write or a removal cannot overwrite it.
func (c *Cache) refetchStale(ctx context.Context, key QueryKey, fetch FetchFunc) (any, error) {
	return c.fetch(ctx, key, fetch, true)
}

func (c *Cache) fetch(ctx context.Context, key QueryKey, fetch FetchFunc, onlyStale bool) (any, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if onlyStale {
		if e, exists := c.entries[key.String()]; !exists || !e.stale {
			c.mu.Unlock()
			return nil, ErrFetchSuperseded
		}
	}
	e := c.ensureEntryLocked(key)
	if e.inflight != nil {
		e.inflight.cancel()
	}
	handle := &inflightFetch{cancel: cancel}
	e.inflight = handle
	c.mu.Unlock()

	value, err := fetch(fetchCtx, Key(key...))

	c.mu.Lock()
	current, exists := c.entries[key.String()]
	owned := exists && current.inflight == handle
	if owned {
		current.inflight = nil
	}
	if !owned {
		c.mu.Unlock()
		c.log.WithField("key", key.String()).Debug("dropping superseded fetch result")
		return nil, ErrFetchSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.storeLocked(current, value)
	notifications := c.collectNotificationsLocked(map[string]struct{}{key.String(): {}})
	c.mu.Unlock()

	dispatch(notifications)
	return value, nil
}

// Watch registers fn to run after every change to key. The returned function
// removes the registration.
func (c *Cache) Watch(key QueryKey, fn WatchFunc) (unwatch func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextWatch++
	id := c.nextWatch
	name := key.String()
	c.watchers[name] = append(c.watchers[name], watcher{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		current := c.watchers[name]
		for idx := range current {
			if current[idx].id == id {
				c.watchers[name] = append(current[:idx:idx], current[idx+1:]...)
				break
			}
		}
		if len(c.watchers[name]) == 0 {
			delete(c.watchers, name)
		}
	}
}

// Reset drops every entry and cancels every in-flight fetch. It is meant for
// session boundaries such as logout.
func (c *Cache) Reset() {
	c.mu.Lock()
	changed := make(map[string]struct{}, len(c.entries))
	for name, e := range c.entries {
		if e.inflight != nil {
			e.inflight.cancel()
		}
		changed[name] = struct{}{}
	}
	c.entries = make(map[string]*entry)
	notifications := c.collectNotificationsLocked(changed)
	c.mu.Unlock()

	c.log.Debug("cache reset")
	dispatch(notifications)
}

func (c *Cache) epoch(key QueryKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key.String()]; exists {
		return e.epoch
	}
	return 0
}

func (c *Cache) lookupLocked(key QueryKey) (any, bool) {
	e, exists := c.entries[key.String()]
	if !exists || !e.hasValue {
		return nil, false
	}

	return e.value, true
}

func (c *Cache) ensureEntryLocked(key QueryKey) *entry {
	name := key.String()
	if e, exists := c.entries[name]; exists {
		return e
	}
	e := &entry{key: Key(key...)}
	c.entries[name] = e

	return e
}

func (c *Cache) storeLocked(e *entry, value any) {
	e.value = value
	e.hasValue = true
	e.stale = false
	e.updatedAt = c.clock()
}

func (c *Cache) cancelInFlightLocked(key QueryKey) {
	e, exists := c.entries[key.String()]
	if !exists || e.inflight == nil {
		return
	}
	e.inflight.cancel()
	e.inflight = nil
}

func (c *Cache) removeLocked(key QueryKey) {
	c.cancelInFlightLocked(key)
	delete(c.entries, key.String())
}

func (c *Cache) collectNotificationsLocked(changed map[string]struct{}) []notification {
	if len(changed) == 0 {
		return nil
	}

	notifications := make([]notification, 0, len(changed))
	for name := range changed {
		registered := c.watchers[name]
		if len(registered) == 0 {
			continue
		}
		fns := make([]WatchFunc, len(registered))
		for idx := range registered {
			fns[idx] = registered[idx].fn
		}
		var value any
		if e, exists := c.entries[name]; exists && e.hasValue {
			value = e.value
		}
		notifications = append(notifications, notification{fns: fns, value: value})
	}

	return notifications
}

func dispatch(notifications []notification) {
	for _, n := range notifications {
		for _, fn := range n.fns {
			fn(n.value)
		}
	}
}

type txn struct {
	cache   *Cache
	changed map[string]struct{}
	done    bool
}

func (t *txn) Get(key QueryKey) any {
	t.mustBeOpen()
	value, _ := t.cache.lookupLocked(key)
	return value
}

func (t *txn) Lookup(key QueryKey) (any, bool) {
	t.mustBeOpen()
	return t.cache.lookupLocked(key)
}

func (t *txn) Set(key QueryKey, value any) {
	t.mustBeOpen()
	t.cache.storeLocked(t.cache.ensureEntryLocked(key), value)
	t.changed[key.String()] = struct{}{}
}

func (t *txn) Remove(key QueryKey) {
	t.mustBeOpen()
	t.cache.removeLocked(key)
	t.changed[key.String()] = struct{}{}
}

func (t *txn) CancelInFlight(key QueryKey) {
	t.mustBeOpen()
	t.cache.cancelInFlightLocked(key)
}

func (t *txn) mustBeOpen() {
	if t.done {
		panic("cache: transaction used after Atomically returned")
	}
}
