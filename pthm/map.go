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

// Map is a concurrent key-value map whose nodes live in a datamgr.Store.
// Map itself holds no transaction and no lock: every method takes the
// transaction it runs in as its first argument, the same way the Data
// Manager is threaded through every operation rather than held ambiently.
type Map struct {
	// Root is the handle of the map's root node. Callers that need to
	// reopen a map across process restarts persist Root themselves and
	// hand it back to Load.
	Root Handle
}

// New creates an empty map, pre-split breadth first to the configured
// min_concurrency, and persists its initial nodes through tx.
func New(tx datamgr.Manager, opts ...Option) (*Map, error) {
	params, err := newParams(opts...)
	if err != nil {
		return nil, err
	}

	root := &Leaf{
		header:  header{Parent: NilHandle, Depth: 0, Params: params},
		Buckets: make([]Handle, params.BucketCount),
	}
	rootHandle, err := createNode(tx, root)
	if err != nil {
		return nil, fmt.Errorf("could not create root: %w", err)
	}

	err = ensureDepth(tx, rootHandle, params.MinDepth)
	if err != nil {
		return nil, fmt.Errorf("could not pre-split to minimum concurrency: %w", err)
	}

	return &Map{Root: rootHandle}, nil
}

// Load attaches a Map to a root handle obtained from a previous Map's Root
// field.
func Load(root Handle) *Map {
	return &Map{Root: root}
}

func (m *Map) bucketOf(tx datamgr.Manager, hash uint32) (*Leaf, Handle, int, error) {
	leaf, leafHandle, err := lookupLeaf(tx, m.Root, hash)
	if err != nil {
		return nil, NilHandle, 0, err
	}
	return leaf, leafHandle, bucketIndex(hash, len(leaf.Buckets)), nil
}

// Get returns the value bound to key, and whether it was found.
func (m *Map) Get(tx datamgr.Manager, key interface{}) (value interface{}, ok bool, err error) {
	hash := keyHash(key)
	leaf, _, bidx, err := m.bucketOf(tx, hash)
	if err != nil {
		return nil, false, err
	}

	current := leaf.Buckets[bidx]
	for !current.IsNil() {
		e, err := fetchEntry(tx, current)
		if err != nil {
			return nil, false, err
		}
		if e.Hash == hash {
			k, err := e.key(tx)
			if err != nil {
				return nil, false, err
			}
			if keysEqual(k, key) {
				v, err := e.value(tx)
				if err != nil {
					return nil, false, err
				}
				return v, true, nil
			}
		}
		current = e.Next
	}

	return nil, false, nil
}

// ContainsKey reports whether key is currently bound to a value.
func (m *Map) ContainsKey(tx datamgr.Manager, key interface{}) (bool, error) {
	_, ok, err := m.Get(tx, key)
	return ok, err
}

// ContainsValue reports whether any key is currently bound to a value equal
// to v. Unlike ContainsKey, this is a full scan: values are not indexed.
func (m *Map) ContainsValue(tx datamgr.Manager, v interface{}) (bool, error) {
	found := false
	err := m.iterate(tx, func(_, value interface{}) (bool, error) {
		if keysEqual(value, v) {
			found = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Put binds key to value, returning the previously bound value if any.
func (m *Map) Put(tx datamgr.Manager, key interface{}, value interface{}) (previous interface{}, existed bool, err error) {
	hash := keyHash(key)
	leaf, leafHandle, bidx, err := m.bucketOf(tx, hash)
	if err != nil {
		return nil, false, err
	}

	head := leaf.Buckets[bidx]
	current := head
	for !current.IsNil() {
		e, err := fetchEntry(tx, current)
		if err != nil {
			return nil, false, err
		}
		if e.Hash == hash {
			k, err := e.key(tx)
			if err != nil {
				return nil, false, err
			}
			if keysEqual(k, key) {
				oldValue, err := e.value(tx)
				if err != nil {
					return nil, false, err
				}

				newHandle, newBoxed, err := reboxValue(tx, e.ValueHandle, e.ValueBoxed, value)
				if err != nil {
					return nil, false, err
				}
				e.ValueHandle = newHandle
				e.ValueBoxed = newBoxed

				err = storeEntry(tx, current, e)
				if err != nil {
					return nil, false, err
				}
				return oldValue, true, nil
			}
		}
		current = e.Next
	}

	keyHandle, keyBoxed, err := refValue(tx, key)
	if err != nil {
		return nil, false, err
	}
	valueHandle, valueBoxed, err := refValue(tx, value)
	if err != nil {
		return nil, false, err
	}

	newEntry := &entry{
		Hash:        hash,
		KeyHandle:   keyHandle,
		KeyBoxed:    keyBoxed,
		ValueHandle: valueHandle,
		ValueBoxed:  valueBoxed,
		Next:        head,
	}
	entryHandle, err := createEntry(tx, newEntry)
	if err != nil {
		return nil, false, err
	}

	leaf.Buckets[bidx] = entryHandle
	leaf.Count++
	err = storeNode(tx, leafHandle, leaf)
	if err != nil {
		return nil, false, err
	}

	err = maybeSplit(tx, leafHandle, leaf)
	if err != nil {
		return nil, false, err
	}

	return nil, false, nil
}

// Remove unbinds key, returning its previously bound value if any.
func (m *Map) Remove(tx datamgr.Manager, key interface{}) (previous interface{}, existed bool, err error) {
	hash := keyHash(key)
	leaf, leafHandle, bidx, err := m.bucketOf(tx, hash)
	if err != nil {
		return nil, false, err
	}

	var prev Handle
	current := leaf.Buckets[bidx]
	for !current.IsNil() {
		e, err := fetchEntry(tx, current)
		if err != nil {
			return nil, false, err
		}

		if e.Hash != hash {
			prev = current
			current = e.Next
			continue
		}
		k, err := e.key(tx)
		if err != nil {
			return nil, false, err
		}
		if !keysEqual(k, key) {
			prev = current
			current = e.Next
			continue
		}

		oldValue, err := e.value(tx)
		if err != nil {
			return nil, false, err
		}

		if prev.IsNil() {
			leaf.Buckets[bidx] = e.Next
		} else {
			pe, err := fetchEntry(tx, prev)
			if err != nil {
				return nil, false, err
			}
			pe.Next = e.Next
			err = storeEntry(tx, prev, pe)
			if err != nil {
				return nil, false, err
			}
		}

		err = e.destroy(tx)
		if err != nil {
			return nil, false, err
		}
		err = tx.RemoveObject(current)
		if err != nil {
			return nil, false, err
		}

		leaf.Count--
		err = storeNode(tx, leafHandle, leaf)
		if err != nil {
			return nil, false, err
		}

		if leaf.Count < leaf.Params.MergeThreshold && leaf.Depth > leaf.Params.MinDepth && !leaf.Parent.IsNil() {
			err = maybeMerge(tx, leaf.Parent)
			if err != nil {
				return nil, false, err
			}
		}

		return oldValue, true, nil
	}

	return nil, false, nil
}

// Size counts the map's entries. Unlike IsEmpty, this always walks every
// leaf: there is no cheaper way to know how many entries a trie of
// independently stored leaves holds.
func (m *Map) Size(tx datamgr.Manager) (int, error) {
	node, err := fetchNode(tx, m.Root)
	if err != nil {
		return 0, err
	}
	if leaf, ok := node.(*Leaf); ok {
		return int(leaf.Count), nil
	}

	_, leaf, err := leftmostLeaf(tx, m.Root)
	if err != nil {
		return 0, err
	}

	total := 0
	for {
		total += int(leaf.Count)
		if leaf.RightSibling.IsNil() {
			break
		}
		leaf, err = fetchLeaf(tx, leaf.RightSibling)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// IsEmpty reports whether the map holds no entries. This walks leaves from
// the left until it finds one with entries or runs out, so it is cheap when
// the map is non-empty (it stops at the first occupied leaf) but, unlike a
// single root.count check, it gives the right answer once the root has
// split into an all-empty subtree.
func (m *Map) IsEmpty(tx datamgr.Manager) (bool, error) {
	_, leaf, err := leftmostLeaf(tx, m.Root)
	if err != nil {
		return false, err
	}

	for {
		if leaf.Count > 0 {
			return false, nil
		}
		if leaf.RightSibling.IsNil() {
			return true, nil
		}
		leaf, err = fetchLeaf(tx, leaf.RightSibling)
		if err != nil {
			return false, err
		}
	}
}

// Depth returns the depth of the map's leftmost leaf, a cheap proxy for how
// far the trie has split. It says nothing about the deepest leaf: split
// decisions are local, so depth can vary across the trie.
func (m *Map) Depth(tx datamgr.Manager) (uint8, error) {
	_, leaf, err := leftmostLeaf(tx, m.Root)
	if err != nil {
		return 0, err
	}
	return leaf.Depth, nil
}

// Clear removes every entry and collapses the trie back to a single empty
// leaf at the root, preserving the map's tuning parameters.
func (m *Map) Clear(tx datamgr.Manager) error {
	node, err := fetchNode(tx, m.Root)
	if err != nil {
		return err
	}

	var params Params
	switch n := node.(type) {
	case *Internal:
		params = n.Params
		err = clearSubtree(tx, n.LeftChild)
		if err != nil {
			return err
		}
		err = clearSubtree(tx, n.RightChild)
		if err != nil {
			return err
		}
	case *Leaf:
		params = n.Params
		err = clearLeafEntries(tx, n)
		if err != nil {
			return err
		}
	}

	empty := &Leaf{
		header:  header{Parent: NilHandle, Depth: 0, Params: params},
		Buckets: make([]Handle, params.BucketCount),
	}
	return storeNode(tx, m.Root, empty)
}

// PutAll copies every binding from other into the map. other's keys must be
// comparable, since they are read out of a native Go map; PTHM's own
// null-safe, deep-equality key comparison only applies to keys already
// inside the map.
func (m *Map) PutAll(tx datamgr.Manager, other map[interface{}]interface{}) error {
	for k, v := range other {
		_, _, err := m.Put(tx, k, v)
		if err != nil {
			return fmt.Errorf("could not put %v: %w", k, err)
		}
	}
	return nil
}

// iterate drives an Iterator over the whole map, calling fn for every entry
// until it returns false, returns an error, or the map is exhausted.
func (m *Map) iterate(tx datamgr.Manager, fn func(key, value interface{}) (bool, error)) error {
	it, err := newIterator(tx, m.Root)
	if err != nil {
		return err
	}

	for {
		k, v, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cont, err := fn(k, v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
