// Package retry runs an operation with exponential backoff and jitter.
//
// It is used at startup when the gateway fetches its signing secret from
// a remote store that may not be reachable yet.
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return fetch(ctx)
//	}, nil)
//
// Wrap an error with Permanent to stop retrying immediately.
package retry
