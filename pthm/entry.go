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

package pthm

import (
	"fmt"

	"github.com/optakt/pthm/datamgr"
)

// entry is one key/value pair inside a bucket's collision chain. Its key and
// value are each either a Handle the caller already owns, or a Box this
// entry owns and must destroy when it is removed or overwritten.
type entry struct {
	Hash        uint32
	KeyHandle   Handle
	KeyBoxed    bool
	ValueHandle Handle
	ValueBoxed  bool
	Next        Handle
}

// fetchEntry resolves handle to an entry through tx.
func fetchEntry(tx datamgr.Manager, handle Handle) (*entry, error) {
	var e entry
	err := tx.Get(handle, &e)
	if err != nil {
		return nil, fmt.Errorf("could not fetch entry %s: %w", handle, err)
	}
	return &e, nil
}

// createEntry registers a brand-new entry and returns its handle.
func createEntry(tx datamgr.Manager, e *entry) (Handle, error) {
	handle, err := tx.CreateRef(e)
	if err != nil {
		return NilHandle, fmt.Errorf("could not create entry: %w", err)
	}
	return handle, nil
}

// storeEntry persists an entry's new state at its existing handle.
func storeEntry(tx datamgr.Manager, handle Handle, e *entry) error {
	err := tx.MarkForUpdate(handle, e)
	if err != nil {
		return fmt.Errorf("could not persist entry %s: %w", handle, err)
	}
	return nil
}

// key resolves the entry's key back to the Go value it represents.
func (e *entry) key(tx datamgr.Manager) (interface{}, error) {
	return derefValue(tx, e.KeyHandle, e.KeyBoxed)
}

// value resolves the entry's value back to the Go value it represents.
func (e *entry) value(tx datamgr.Manager) (interface{}, error) {
	return derefValue(tx, e.ValueHandle, e.ValueBoxed)
}

// destroy releases whatever boxes this entry owns. It does not unlink the
// entry from its chain; the caller does that before or after, depending on
// whether it is removing or overwriting the entry.
func (e *entry) destroy(tx datamgr.Manager) error {
	err := destroyValue(tx, e.KeyHandle, e.KeyBoxed)
	if err != nil {
		return err
	}
	return destroyValue(tx, e.ValueHandle, e.ValueBoxed)
}
