package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultRefetchTimeout = 20 * time.Second

// Loader runs fetches for a Cache. It is the cache's Refetcher: stale keys are
// fetched again in the background with the function registered for their prefix.
type Loader struct {
	cache   *Cache
	timeout time.Duration
	log     *logrus.Entry

	mu       sync.RWMutex
	fetchers map[string]FetchFunc
	closed   bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRefetchTimeout bounds each background refetch.
func WithRefetchTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithLoaderLogger sets the log entry used by the loader.
func WithLoaderLogger(log *logrus.Entry) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader creates a loader and installs it as c's refetcher.
func NewLoader(c *Cache, opts ...LoaderOption) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		cache:    c,
		timeout:  defaultRefetchTimeout,
		log:      logrus.StandardLogger().WithField("component", "loader"),
		fetchers: make(map[string]FetchFunc),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	c.SetRefetcher(l)

	return l
}

// Register sets the fetch function for keys whose first segment is prefix.
func (l *Loader) Register(prefix string, fetch FetchFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchers[prefix] = fetch
}

// Load fetches key now and stores the result. Concurrent loads of the same key
// share one request. The shared request is bounded by the refetch timeout and
// Close, not by ctx: a caller whose ctx ends stops waiting, but the others
// still get the result.
func (l *Loader) Load(ctx context.Context, key QueryKey) (any, error) {
	fetch, err := l.fetcher(key)
	if err != nil {
		return nil, err
	}

	result := l.group.DoChan(l.flightKey(key), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(l.ctx, l.timeout)
		defer cancel()
		return l.cache.Fetch(fetchCtx, key, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, fmt.Errorf("load %s: %w", key, res.Err)
		}
		return res.Val, nil
	}
}

// Read returns the cached value for key when it is present and fresh, and loads it otherwise.
func (l *Loader) Read(ctx context.Context, key QueryKey) (any, error) {
	if info, found := l.cache.Entry(key); found && !info.Stale {
		return info.Value, nil
	}

	return l.Load(ctx, key)
}

// Refetch schedules a background fetch for key. It never blocks on the network.
func (l *Loader) Refetch(key QueryKey) {
	fetch, err := l.fetcher(key)
	if err != nil {
		l.log.WithField("key", key.String()).WithError(err).Debug("skipping refetch")
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
		defer cancel()

		_, err, _ := l.group.Do(l.flightKey(key), func() (any, error) {
			return l.cache.refetchStale(ctx, key, fetch)
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrFetchSuperseded), errors.Is(err, context.Canceled):
			l.log.WithField("key", key.String()).Debug("refetch superseded")
		default:
			l.log.WithField("key", key.String()).WithError(err).Warn("refetch failed")
		}
	}()
}

// Close cancels outstanding refetches and waits for them to return.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

func (l *Loader) fetcher(key QueryKey) (FetchFunc, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrLoaderClosed
	}
	fetch, ok := l.fetchers[key.Prefix()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoFetcher, key.Prefix())
	}

	return fetch, nil
}

// flightKey ties request sharing to the invalidation epoch so a refetch
// signalled after a newer invalidation never joins an older request.
func (l *Loader) flightKey(key QueryKey) string {
	return fmt.Sprintf("%s#%d", key.String(), l.cache.epoch(key))
}
