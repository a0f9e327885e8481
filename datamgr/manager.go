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

package datamgr

// Manager is the contract PTHM requires from whatever object store backs
// it. A Tx is one transactional view of a Manager; every top-level PTHM
// operation runs inside exactly one Tx.
//
// Object is left as interface{} deliberately: the store does not know the
// shape of what it stores, only how to find, fetch, and discard it by
// Handle. PTHM is the only caller that knows whether a Handle resolves to a
// node, an entry's key box, or its value box.
type Manager interface {
	// CreateRef registers a newly constructed object and returns a durable
	// handle for it. The object is visible to Get calls in the same Tx
	// immediately, and to other transactions once this Tx commits.
	CreateRef(obj interface{}) (Handle, error)

	// Get resolves a handle to the live object state inside the current
	// transaction. It returns ErrObjectNotFound if the handle has been
	// removed.
	Get(handle Handle, out interface{}) error

	// MarkForUpdate signals intent to write the object at handle and
	// records obj as its new state. Callers mutate the copy they obtained
	// via Get and then pass it here, so the store can detect conflicting
	// concurrent writers.
	MarkForUpdate(handle Handle, obj interface{}) error

	// RemoveObject deletes the object at handle from the store.
	RemoveObject(handle Handle) error

	// IsManaged reports whether obj is itself a durable Handle to something
	// already registered with the store, as opposed to an arbitrary value
	// that must be boxed before it can be referenced.
	IsManaged(obj interface{}) bool
}
