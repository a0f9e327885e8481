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

// clearSubtree recursively discards every node and entry rooted at handle.
// The root of the whole map is repaired into an empty leaf by the caller;
// clearSubtree itself only ever removes, it never repairs.
func clearSubtree(tx datamgr.Manager, handle Handle) error {
	node, err := fetchNode(tx, handle)
	if err != nil {
		return fmt.Errorf("could not fetch node while clearing: %w", err)
	}

	switch n := node.(type) {
	case *Internal:
		err = clearSubtree(tx, n.LeftChild)
		if err != nil {
			return err
		}
		err = clearSubtree(tx, n.RightChild)
		if err != nil {
			return err
		}
	case *Leaf:
		err = clearLeafEntries(tx, n)
		if err != nil {
			return err
		}
	}

	err = tx.RemoveObject(handle)
	if err != nil {
		return fmt.Errorf("could not remove node %s while clearing: %w", handle, err)
	}
	return nil
}

// clearLeafEntries destroys every entry in leaf, including boxes they own,
// without touching the leaf node itself.
func clearLeafEntries(tx datamgr.Manager, leaf *Leaf) error {
	for _, head := range leaf.Buckets {
		current := head
		for !current.IsNil() {
			e, err := fetchEntry(tx, current)
			if err != nil {
				return fmt.Errorf("could not fetch entry while clearing: %w", err)
			}
			next := e.Next

			err = e.destroy(tx)
			if err != nil {
				return fmt.Errorf("could not destroy entry while clearing: %w", err)
			}
			err = tx.RemoveObject(current)
			if err != nil {
				return fmt.Errorf("could not remove entry %s while clearing: %w", current, err)
			}

			current = next
		}
	}
	return nil
}
