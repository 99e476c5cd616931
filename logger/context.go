package logger

import (
	"context"
	"sync/atomic"
	"time"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// httpCounterKey tracks how many HTTP dispatches one logical call made, retries included
	httpCounterKey contextKey = "http_dispatch_counter"
	// httpElapsedKey tracks the total time spent on the wire for one logical call
	httpElapsedKey contextKey = "http_elapsed_nanos"
)

// WithHTTPCounter creates a new context with an HTTP dispatch counter and elapsed time tracker
func WithHTTPCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, httpCounterKey, &counter)
	ctx = context.WithValue(ctx, httpElapsedKey, &elapsed)
	return ctx
}

// HasHTTPCounter reports whether ctx already carries a dispatch counter.
func HasHTTPCounter(ctx context.Context) bool {
	counter, ok := ctx.Value(httpCounterKey).(*int64)
	return ok && counter != nil
}

// IncrementHTTPCounter increments the dispatch counter and returns the new value.
// Contexts without a counter return 0.
func IncrementHTTPCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(httpCounterKey).(*int64); ok && counter != nil {
		return atomic.AddInt64(counter, 1)
	}
	return 0
}

// GetHTTPCounter returns the current dispatch count from the context
func GetHTTPCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(httpCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddHTTPElapsed adds d to the wire time recorded in the context
func AddHTTPElapsed(ctx context.Context, d time.Duration) {
	if elapsed, ok := ctx.Value(httpElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, int64(d))
	}
}

// GetHTTPElapsed returns the wire time recorded in the context
func GetHTTPElapsed(ctx context.Context) time.Duration {
	if elapsed, ok := ctx.Value(httpElapsedKey).(*int64); ok && elapsed != nil {
		return time.Duration(atomic.LoadInt64(elapsed))
	}
	return 0
}
