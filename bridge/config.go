// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"github.com/bureau-foundation/syncsocket/lib/config"
)

// FromConfig returns a Bridge configured from the bridge and worker
// sections of a config file. The worker binary is run with no extra
// arguments; the listen flags are added by Start.
func FromConfig(cfg *config.Config) *Bridge {
	return &Bridge{
		WorkerCommand: []string{cfg.Bridge.WorkerBinary},
		ListenPort:    cfg.Bridge.ListenPort,
		BindAddress:   cfg.Worker.BindAddress,
		MaxChunk:      cfg.Worker.MaxChunk,
		ReadyTimeout:  cfg.Bridge.ReadyTimeout,
		ReadyInterval: cfg.Bridge.ReadyInterval,
		CallTimeout:   cfg.Bridge.CallTimeout,
	}
}
