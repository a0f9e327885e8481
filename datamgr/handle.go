// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package datamgr implements the external, transactional object store that
// PTHM addresses its nodes, entries, and boxes through. It plays the role of
// the Data Manager described by the PTHM design: every node is an
// independent object reachable through a durable Handle, and every
// top-level PTHM operation runs inside one Tx obtained from a Store.
package datamgr

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Handle is a durable, serializable, comparable identifier for an object
// registered with the store. It is safe to use as a map key and to embed as
// a field of another stored object; it carries no pointer to live state, so
// it never keeps cycles of Go objects alive and can be persisted as-is.
type Handle struct {
	id [16]byte
}

// NilHandle is the zero value of Handle. It never resolves to a live object
// and is used to mark an absent link (no parent, no sibling, no child).
var NilHandle = Handle{}

// IsNil reports whether the handle is the absent-link sentinel.
func (h Handle) IsNil() bool {
	return h == NilHandle
}

// String renders the handle as a hex string, mainly for logging.
func (h Handle) String() string {
	return hex.EncodeToString(h.id[:])
}

// Bytes returns the handle's underlying identifier, for use as a store key.
func (h Handle) Bytes() []byte {
	return h.id[:]
}

// MarshalBinary implements encoding.BinaryMarshaler so a Handle can be a
// field inside a CBOR-encoded node without custom codec wiring.
func (h Handle) MarshalBinary() ([]byte, error) {
	return h.id[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Handle) UnmarshalBinary(data []byte) error {
	copy(h.id[:], data)
	return nil
}

// newHandle allocates a fresh, globally unique handle. It never collides
// with NilHandle because uuid.New never returns the all-zero UUID.
func newHandle() Handle {
	id := uuid.New()
	var h Handle
	copy(h.id[:], id[:])
	return h
}
