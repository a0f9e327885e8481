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
	"errors"
	"fmt"

	"github.com/optakt/pthm/datamgr"
)

// Iterator sweeps the leaf chain left to right, yielding entries in no
// guaranteed order beyond "all entries of leaf i precede all of leaf i+1". It
// never panics on a concurrent split, merge, put, or remove: a handle that
// has vanished underneath it is treated as "nothing more to see from here",
// not as an error.
type Iterator struct {
	tx         datamgr.Manager
	leaf       *Leaf
	leafHandle Handle
	bucket     int
	next       Handle
}

// newIterator positions an Iterator at the first live entry reachable from
// root's leftmost leaf.
func newIterator(tx datamgr.Manager, root Handle) (*Iterator, error) {
	leafHandle, leaf, err := leftmostLeaf(tx, root)
	if err != nil {
		return nil, err
	}

	it := &Iterator{tx: tx, leaf: leaf, leafHandle: leafHandle}
	err = it.seek(0)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func leftmostLeaf(tx datamgr.Manager, root Handle) (Handle, *Leaf, error) {
	current := root
	for {
		node, err := fetchNode(tx, current)
		if err != nil {
			return NilHandle, nil, fmt.Errorf("could not descend to leftmost leaf: %w", err)
		}
		if leaf, ok := node.(*Leaf); ok {
			return current, leaf, nil
		}
		internal, ok := node.(*Internal)
		invariant(ok, "node %s is neither leaf nor internal: %T", current, node)
		current = internal.LeftChild
	}
}

// Next returns the next key/value pair, or ok=false once the chain is
// exhausted.
func (it *Iterator) Next() (key interface{}, value interface{}, ok bool, err error) {
	for {
		if it.next.IsNil() {
			return nil, nil, false, nil
		}

		handle := it.next
		e, err := fetchEntry(it.tx, handle)
		if errors.Is(err, datamgr.ErrObjectNotFound) {
			err = it.seek(it.bucket + 1)
			if err != nil {
				return nil, nil, false, err
			}
			continue
		}
		if err != nil {
			return nil, nil, false, err
		}

		k, err := e.key(it.tx)
		if err != nil {
			return nil, nil, false, err
		}
		v, err := e.value(it.tx)
		if err != nil {
			return nil, nil, false, err
		}

		if !e.Next.IsNil() {
			it.next = e.Next
		} else {
			err = it.seek(it.bucket + 1)
			if err != nil {
				return nil, nil, false, err
			}
		}

		return k, v, true, nil
	}
}

// Remove is not implemented: PTHM's iterator is read-only, the live views
// built on it mutate through Map directly instead. It always fails with
// ErrUnsupportedOperation.
func (it *Iterator) Remove() error {
	return ErrUnsupportedOperation
}

// seek advances the iterator to the next non-empty bucket at or after
// startBucket in the current leaf, crossing into right siblings as needed,
// and leaves the iterator exhausted if none remains.
func (it *Iterator) seek(startBucket int) error {
	leaf := it.leaf
	leafHandle := it.leafHandle
	bucket := startBucket

	for leaf != nil {
		for bucket < len(leaf.Buckets) {
			if !leaf.Buckets[bucket].IsNil() {
				it.leaf = leaf
				it.leafHandle = leafHandle
				it.bucket = bucket
				it.next = leaf.Buckets[bucket]
				return nil
			}
			bucket++
		}

		if leaf.RightSibling.IsNil() {
			leaf = nil
			break
		}

		nextHandle := leaf.RightSibling
		nextNode, err := fetchNode(it.tx, nextHandle)
		if errors.Is(err, datamgr.ErrObjectNotFound) {
			leaf = nil
			break
		}
		if err != nil {
			return fmt.Errorf("could not follow sibling chain: %w", err)
		}

		// A leaf cached before this call may have been split by another
		// operation in the same transaction, turning its RightSibling
		// handle into an Internal reused in place (see storeNode in
		// split.go). That is the same "nothing more to see from here" case
		// as a vanished handle, not an error: the iterator never crossed
		// into the new subtree, so there is nothing to resume from.
		nextLeaf, ok := nextNode.(*Leaf)
		if !ok {
			leaf = nil
			break
		}

		leaf = nextLeaf
		leafHandle = nextHandle
		bucket = 0
	}

	it.leaf = nil
	it.leafHandle = NilHandle
	it.next = NilHandle
	return nil
}
