// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"

	"github.com/bureau-foundation/syncsocket/lib/process"
	"github.com/bureau-foundation/syncsocket/worker"
)

func main() {
	if err := worker.RunCommand(context.Background(), os.Args[1:], os.Stderr); err != nil {
		process.Fatal(err)
	}
}
