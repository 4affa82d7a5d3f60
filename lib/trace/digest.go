// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"hash"

	"github.com/zeebo/blake3"
)

// DigestSize is the size of a seal digest in bytes.
const DigestSize = 32

// sealDomainKey separates capture digests from any other BLAKE3 use of
// the same bytes. ASCII "syncsocket.trace.seal", zero-padded.
var sealDomainKey = [32]byte{
	's', 'y', 'n', 'c', 's', 'o', 'c', 'k', 'e', 't', '.', 't', 'r', 'a', 'c', 'e',
	'.', 's', 'e', 'a', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func newSealHasher() hash.Hash {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(sealDomainKey[:])
	if err != nil {
		panic("trace: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
