// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// The bridge polls the worker's readiness probe against a deadline and
// waits a grace period before escalating a stop to SIGKILL. Both loops
// take their time from a Clock so tests can drive them without real
// sleeps:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	b := &bridge.Bridge{Clock: fake, ReadyTimeout: 5 * time.Second}
//	go func() { errs <- b.Start(ctx) }()
//	fake.WaitForTimers(1)          // the loop is parked on its interval
//	fake.Advance(5 * time.Second)  // push it past the deadline
//
// WaitForTimers blocks until the given number of waiters are
// registered, which removes the race between a goroutine arming a
// timer and the test advancing time.
package clock
