// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package process

import "syscall"

// SetParentDeathSignal is a no-op outside Linux. Workers on other
// platforms rely on the bridge's explicit kill.
func SetParentDeathSignal(signal syscall.Signal) error {
	return nil
}
