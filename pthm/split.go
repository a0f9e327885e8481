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

// split turns the leaf at selfHandle into an internal node with two new leaf
// children, redistributing its entries by the next prefix bit. selfHandle
// never changes: the leaf's handle is overwritten in place with the internal
// node's state, so the parent's child pointer (if any) needs no update.
func split(tx datamgr.Manager, selfHandle Handle, self *Leaf) error {
	invariant(self.Depth < MaxDepth, "cannot split leaf %s already at max depth", selfHandle)

	childDepth := self.Depth + 1
	left := &Leaf{
		header:      header{Parent: selfHandle, Depth: childDepth, Params: self.Params},
		Buckets:     make([]Handle, self.Params.BucketCount),
		LeftSibling: self.LeftSibling,
	}
	right := &Leaf{
		header:       header{Parent: selfHandle, Depth: childDepth, Params: self.Params},
		Buckets:      make([]Handle, self.Params.BucketCount),
		RightSibling: self.RightSibling,
	}

	for _, head := range self.Buckets {
		current := head
		for !current.IsNil() {
			e, err := fetchEntry(tx, current)
			if err != nil {
				return fmt.Errorf("could not fetch entry while splitting: %w", err)
			}
			next := e.Next

			target := right
			if routeBit(e.Hash, self.Depth) == 1 {
				target = left
			}
			bidx := bucketIndex(e.Hash, len(target.Buckets))
			e.Next = target.Buckets[bidx]
			target.Buckets[bidx] = current
			target.Count++

			err = storeEntry(tx, current, e)
			if err != nil {
				return fmt.Errorf("could not re-link entry while splitting: %w", err)
			}

			current = next
		}
	}

	leftHandle, err := createNode(tx, left)
	if err != nil {
		return fmt.Errorf("could not create left child: %w", err)
	}

	right.LeftSibling = leftHandle
	rightHandle, err := createNode(tx, right)
	if err != nil {
		return fmt.Errorf("could not create right child: %w", err)
	}

	left.RightSibling = rightHandle
	err = storeNode(tx, leftHandle, left)
	if err != nil {
		return fmt.Errorf("could not link left child to right child: %w", err)
	}

	internal := &Internal{
		header:     self.header,
		LeftChild:  leftHandle,
		RightChild: rightHandle,
	}
	err = storeNode(tx, selfHandle, internal)
	if err != nil {
		return fmt.Errorf("could not convert leaf to internal node: %w", err)
	}

	if !self.LeftSibling.IsNil() {
		err = relinkSibling(tx, self.LeftSibling, rightSide, leftHandle)
		if err != nil {
			return fmt.Errorf("could not repair left sibling's link: %w", err)
		}
	}
	if !self.RightSibling.IsNil() {
		err = relinkSibling(tx, self.RightSibling, leftSide, rightHandle)
		if err != nil {
			return fmt.Errorf("could not repair right sibling's link: %w", err)
		}
	}

	return nil
}

type siblingSide bool

const (
	leftSide  siblingSide = true
	rightSide siblingSide = false
)

// relinkSibling points the named side of the leaf at handle to newNeighbor.
func relinkSibling(tx datamgr.Manager, handle Handle, side siblingSide, newNeighbor Handle) error {
	leaf, err := fetchLeaf(tx, handle)
	if err != nil {
		return err
	}
	if side == leftSide {
		leaf.LeftSibling = newNeighbor
	} else {
		leaf.RightSibling = newNeighbor
	}
	return storeNode(tx, handle, leaf)
}

// maybeSplit splits the leaf at handle if it has crossed its split
// threshold and has room left to grow.
func maybeSplit(tx datamgr.Manager, handle Handle, leaf *Leaf) error {
	if leaf.Count < leaf.Params.SplitThreshold {
		return nil
	}
	if leaf.Depth >= MaxDepth {
		return nil
	}
	return split(tx, handle, leaf)
}

// ensureDepth pre-splits the tree rooted at root so that every leaf reaches
// at least minDepth, breadth first. Splitting depth-first would leave a
// branch's sibling links pointing at nodes that haven't been split yet.
func ensureDepth(tx datamgr.Manager, root Handle, minDepth uint8) error {
	if minDepth == 0 {
		return nil
	}

	pending := newHandleQueue()
	pending.push(root)

	for !pending.empty() {
		handle := pending.pop()

		node, err := fetchNode(tx, handle)
		if err != nil {
			return fmt.Errorf("could not fetch node while pre-splitting: %w", err)
		}

		switch n := node.(type) {
		case *Internal:
			if n.Depth+1 < minDepth {
				pending.push(n.LeftChild)
				pending.push(n.RightChild)
			}
		case *Leaf:
			if n.Depth >= minDepth {
				continue
			}
			err = split(tx, handle, n)
			if err != nil {
				return fmt.Errorf("could not pre-split leaf %s: %w", handle, err)
			}
			refetched, err := fetchInternal(tx, handle)
			if err != nil {
				return fmt.Errorf("could not fetch node just split: %w", err)
			}
			pending.push(refetched.LeftChild)
			pending.push(refetched.RightChild)
		}
	}

	return nil
}
