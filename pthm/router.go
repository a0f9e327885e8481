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

// route walks the trie from root down to the leaf responsible for hash. It
// returns the leaf, its handle, and every internal node handle visited along
// the way, root first. Its only caller, lookupLeaf, discards the ancestors.
func route(tx datamgr.Manager, root Handle, hash uint32) (leaf *Leaf, leafHandle Handle, ancestors []Handle, err error) {
	current := root
	for {
		node, err := fetchNode(tx, current)
		if err != nil {
			return nil, NilHandle, nil, fmt.Errorf("could not fetch node while routing: %w", err)
		}

		l, ok := node.(*Leaf)
		if ok {
			return l, current, ancestors, nil
		}

		internal, ok := node.(*Internal)
		invariant(ok, "node %s is neither leaf nor internal: %T", current, node)

		ancestors = append(ancestors, current)

		if routeBit(hash, internal.Depth) == 1 {
			current = internal.LeftChild
		} else {
			current = internal.RightChild
		}
	}
}

// lookupLeaf is a convenience wrapper around route for callers that only
// need the destination leaf.
func lookupLeaf(tx datamgr.Manager, root Handle, hash uint32) (*Leaf, Handle, error) {
	leaf, handle, _, err := route(tx, root, hash)
	return leaf, handle, err
}
