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
	"github.com/optakt/pthm/datamgr"
)

// Entry is one key/value pair as surfaced by an EntrySet, independent of the
// internal entry type a leaf's bucket chain stores.
type Entry struct {
	Key   interface{}
	Value interface{}
}

// KeySet, ValueCollection, and EntrySet are live views: each call to Iterate
// walks the map as it stands at that moment, inside the transaction the
// caller supplies. They hold no snapshot, so a view obtained before a put or
// remove reflects that change on the next Iterate call.
type KeySet struct {
	m *Map
}

// Keys returns a live view over the map's keys.
func (m *Map) Keys() *KeySet {
	return &KeySet{m: m}
}

// Iterate calls fn for every key currently in the map, stopping early if fn
// returns false or an error.
func (ks *KeySet) Iterate(tx datamgr.Manager, fn func(key interface{}) (bool, error)) error {
	return ks.m.iterate(tx, func(k, _ interface{}) (bool, error) {
		return fn(k)
	})
}

// ValueCollection is a live view over the map's values. Unlike KeySet, it
// makes no uniqueness claim: two distinct keys bound to equal values surface
// that value twice.
type ValueCollection struct {
	m *Map
}

// Values returns a live view over the map's values.
func (m *Map) Values() *ValueCollection {
	return &ValueCollection{m: m}
}

// Iterate calls fn for every value currently in the map.
func (vc *ValueCollection) Iterate(tx datamgr.Manager, fn func(value interface{}) (bool, error)) error {
	return vc.m.iterate(tx, func(_, v interface{}) (bool, error) {
		return fn(v)
	})
}

// EntrySet is a live view over the map's key/value pairs.
type EntrySet struct {
	m *Map
}

// Entries returns a live view over the map's entries.
func (m *Map) Entries() *EntrySet {
	return &EntrySet{m: m}
}

// Iterate calls fn for every entry currently in the map. fn may put into or
// remove from the map through Map in the same transaction; iteration neither
// fails nor panics because of it, but changes the sweep has not reached yet
// may or may not be seen. The underlying Iterator.Remove exists only to
// return ErrUnsupportedOperation, matching the associative API's documented
// error kinds.
func (es *EntrySet) Iterate(tx datamgr.Manager, fn func(entry Entry) (bool, error)) error {
	return es.m.iterate(tx, func(k, v interface{}) (bool, error) {
		return fn(Entry{Key: k, Value: v})
	})
}
