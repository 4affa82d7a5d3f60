// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// recordingT captures Fatalf instead of stopping the test.
type recordingT struct {
	failed  bool
	message string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceiveReturnsValue(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireClosedTimesOut(t *testing.T) {
	recorder := &recordingT{}
	RequireClosed(recorder, make(chan struct{}), 10*time.Millisecond, "worker %s", "ready")
	if !recorder.failed {
		t.Fatal("RequireClosed did not fail on an open channel")
	}
	if want := "timed out after 10ms waiting for channel close: worker ready"; recorder.message != want {
		t.Errorf("message = %q, want %q", recorder.message, want)
	}
}

func TestRequireEventuallyPolls(t *testing.T) {
	calls := 0
	RequireEventually(t, time.Second, time.Millisecond, func() bool {
		calls++
		return calls == 3
	}, "third poll")
	if calls != 3 {
		t.Errorf("condition evaluated %d times, want 3", calls)
	}

	recorder := &recordingT{}
	RequireEventually(recorder, 5*time.Millisecond, time.Millisecond, func() bool { return false })
	if !recorder.failed || recorder.message != "condition not met after 5ms: (no message)" {
		t.Errorf("never-true condition: failed %v message %q", recorder.failed, recorder.message)
	}
}
