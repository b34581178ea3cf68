package cache

import "errors"

var (
	// ErrFetchSuperseded indicates a fetch finished after it was cancelled,
	// replaced by a newer fetch, or its entry was removed. Its result was dropped.
	ErrFetchSuperseded = errors.New("cache: fetch superseded")
	// ErrNoFetcher indicates no fetch function is registered for a key prefix.
	ErrNoFetcher = errors.New("cache: no fetcher registered")
	// ErrLoaderClosed indicates the loader no longer accepts work.
	ErrLoaderClosed = errors.New("cache: loader closed")
)
