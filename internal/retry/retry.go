// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs search steps that may fail transiently under a bounded
// number of attempts, each with its own wall-clock timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRetryAndTimeout is returned when every attempt failed or timed out.
var ErrRetryAndTimeout = errors.New("retries exhausted")

// Status classifies the outcome of one attempt.
type Status int

const (
	Success Status = iota
	Retryable
	Fatal
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of one attempt.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v, Status: Success} }

// Again reports a failure worth retrying. v may carry a partial value.
func Again[T any](v T, err error) Result[T] { return Result[T]{Value: v, Status: Retryable, Err: err} }

// Fail reports a failure that no retry can fix.
func Fail[T any](err error) Result[T] { return Result[T]{Status: Fatal, Err: err} }

// Classify builds a Result from a conventional (value, error) pair: nil is
// success, errors matching fatal are Fatal, anything else is Retryable.
func Classify[T any](v T, err error, fatal ...error) Result[T] {
	if err == nil {
		return Ok(v)
	}
	for _, f := range fatal {
		if errors.Is(err, f) {
			return Result[T]{Value: v, Status: Fatal, Err: err}
		}
	}
	return Again(v, err)
}

// Policy bounds a retry loop.
type Policy struct {
	// MaxRetries is the number of attempts after the first. Zero selects
	// DefaultMaxRetries; negative disables retrying.
	MaxRetries int

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	// BaseDelay, when set, sleeps BaseDelay, 2*BaseDelay, ... between attempts.
	BaseDelay time.Duration

	Log logrus.FieldLogger
}

// DefaultMaxRetries is used when Policy.MaxRetries is zero.
const DefaultMaxRetries = 5

func (p Policy) attempts() int {
	switch {
	case p.MaxRetries < 0:
		return 1
	case p.MaxRetries == 0:
		return DefaultMaxRetries + 1
	}
	return p.MaxRetries + 1
}

// Do calls fn until it succeeds, fails fatally or the attempts run out.
// Each call gets a context that expires after p.Timeout; fn is expected to
// check it and return Retryable when it fires. An attempt that returns
// after its deadline without success counts as retryable.
//
// On exhaustion the error wraps both ErrRetryAndTimeout and the last
// attempt's error, and the last attempt's value is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) Result[T]) (T, error) {
	var last Result[T]
	n := p.attempts()
	for attempt := 0; attempt < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return last.Value, err
		}

		last = runAttempt(ctx, p.Timeout, fn)
		switch last.Status {
		case Success:
			return last.Value, nil
		case Fatal:
			return last.Value, last.Err
		}

		if p.Log != nil {
			p.Log.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"of":      n,
			}).WithError(last.Err).Debug("attempt failed, retrying")
		}

		if p.BaseDelay > 0 && attempt+1 < n {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
			select {
			case <-ctx.Done():
				return last.Value, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	if last.Err == nil {
		last.Err = context.DeadlineExceeded
	}
	return last.Value, fmt.Errorf("%w after %d attempts: %w", ErrRetryAndTimeout, n, last.Err)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) Result[T]) Result[T] {
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	r := fn(actx)
	if r.Status == Success {
		return r
	}
	if r.Err == nil && actx.Err() != nil {
		r.Err = actx.Err()
	}
	if r.Status != Fatal && r.Err == nil {
		r.Err = errors.New("attempt failed")
	}
	return r
}
