// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package process

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetParentDeathSignal arranges for signal to be delivered to this
// process when its parent exits. If the parent already exited before
// the call (the process was reparented to init), it returns an error
// so the caller can shut down immediately.
func SetParentDeathSignal(signal syscall.Signal) error {
	parent := os.Getppid()
	if err := unix.Prctl(unix.PR_SET_PDEATHSIG, uintptr(signal), 0, 0, 0); err != nil {
		return fmt.Errorf("prctl PR_SET_PDEATHSIG: %w", err)
	}
	if parent == 1 {
		return fmt.Errorf("parent process already exited")
	}
	return nil
}
