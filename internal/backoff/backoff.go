// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backoff implements a constant-interval retrier, used by
// internal/store to bound retries of transient store errors on idempotent
// gateway operations. The shape is adapted from dagu's own
// internal/backoff package, whose authors note it was itself inspired by
// Temporal's retry policy (https://github.com/temporalio/temporal) — a
// lineage also reflected in the separate temporalio-go-sdk reference
// material. Trimmed to the one policy this system actually needs;
// exponential/linear variants were dropped since nothing here calls for
// backoff growth: task attempts retry immediately, with no backoff.
package backoff

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted is returned only when the policy allows no call at all
// (negative MaxRetries). Once retries run out, Retry returns fn's last error.
var ErrRetriesExhausted = errors.New("backoff: retries exhausted")

// ConstantPolicy retries at most MaxRetries times, waiting Interval between
// attempts.
type ConstantPolicy struct {
	Interval   time.Duration
	MaxRetries int
}

// Retry invokes fn until it succeeds, ctx is canceled, or MaxRetries is
// exhausted. Only use this around idempotent operations: fn may run more
// than once.
func (p ConstantPolicy) Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.MaxRetries {
			return err
		}
		timer := time.NewTimer(p.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return ErrRetriesExhausted
}
