// Package fngerrors provides the tagged error taxonomy for the pipeline
// and bounded retry with exponential backoff for the operations that are
// safe to repeat. Every pipeline-level failure surfaces to the caller as
// an *Error carrying one of the kinds below; nothing is silently
// swallowed.
package fngerrors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindNetwork           Kind = "network"             // transport failure or timeout
	KindParse             Kind = "parse"               // malformed upstream payload
	KindSchema            Kind = "schema"              // local data columns missing or mistyped
	KindEmptyResult       Kind = "empty_result"        // upstream returned zero records
	KindEmptyDataset      Kind = "empty_dataset"       // nothing to summarize
	KindIO                Kind = "io"                  // persistence or file read failure
	KindUnsupportedFormat Kind = "unsupported_format"  // unrecognized output format selector
	KindInvalidDateRange  Kind = "invalid_date_range"  // end before start or unparseable dates
	KindUnknown           Kind = "unknown"
)

// Error is a pipeline failure tagged with its kind and origin.
type Error struct {
	Kind      Kind
	Component string
	Op        string
	Err       error
}

// E builds a tagged error.
func E(kind Kind, component, op string, err error) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", e.Component, e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, falling back to the wrapped chain.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Err, target)
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether an error is worth repeating. Only transport
// failures are: malformed payloads, schema mismatches, and bad
// configuration will not improve on a second attempt.
func Retryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return KindOf(err) == KindNetwork
}

// RetryPolicy bounds the retry loop.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy is the bounded exponential backoff used by the
// remote fetcher.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Retry runs fn with exponential backoff until it succeeds, returns a
// non-retryable error, exhausts the policy's attempts, or the context is
// canceled.
func Retry(ctx context.Context, logger *slog.Logger, component, op string, policy RetryPolicy, fn func() error) error {
	if logger == nil {
		logger = slog.Default()
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = policy.InitialDelay
	strategy.MaxInterval = policy.MaxDelay
	strategy.MaxElapsedTime = 0 // bounded by attempts, not elapsed time

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		logger.Warn("operation failed",
			"component", component,
			"op", op,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"retryable", Retryable(err),
			"error", err)

		if !Retryable(err) || attempt >= policy.MaxAttempts {
			break
		}

		select {
		case <-time.After(strategy.NextBackOff()):
		case <-ctx.Done():
			return E(KindNetwork, component, op, fmt.Errorf("canceled during backoff: %w", ctx.Err()))
		}
	}

	return lastErr
}
