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

// merge collapses self's two leaf children back into self, turning self back
// into a leaf. It silently declines — returning merged=false, no error — if
// either child is not a leaf, or if the average of the two children's counts
// exceeds the split threshold; neither is a caller mistake, just a
// configuration under which this particular merge does not apply.
func merge(tx datamgr.Manager, selfHandle Handle, self *Internal) (merged bool, err error) {
	leftNode, err := fetchNode(tx, self.LeftChild)
	if err != nil {
		return false, fmt.Errorf("could not fetch left child: %w", err)
	}
	rightNode, err := fetchNode(tx, self.RightChild)
	if err != nil {
		return false, fmt.Errorf("could not fetch right child: %w", err)
	}

	left, ok := leftNode.(*Leaf)
	if !ok {
		return false, nil
	}
	right, ok := rightNode.(*Leaf)
	if !ok {
		return false, nil
	}

	if (left.Count+right.Count)/2 > left.Params.SplitThreshold {
		return false, nil
	}

	combined := &Leaf{
		header:       self.header,
		Buckets:      make([]Handle, left.Params.BucketCount),
		LeftSibling:  left.LeftSibling,
		RightSibling: right.RightSibling,
	}

	for _, child := range [2]*Leaf{left, right} {
		for _, head := range child.Buckets {
			current := head
			for !current.IsNil() {
				e, err := fetchEntry(tx, current)
				if err != nil {
					return false, fmt.Errorf("could not fetch entry while merging: %w", err)
				}
				next := e.Next

				bidx := bucketIndex(e.Hash, len(combined.Buckets))
				e.Next = combined.Buckets[bidx]
				combined.Buckets[bidx] = current
				combined.Count++

				err = storeEntry(tx, current, e)
				if err != nil {
					return false, fmt.Errorf("could not re-link entry while merging: %w", err)
				}

				current = next
			}
		}
	}

	err = storeNode(tx, selfHandle, combined)
	if err != nil {
		return false, fmt.Errorf("could not convert internal node back to leaf: %w", err)
	}

	if !combined.LeftSibling.IsNil() {
		err = relinkSibling(tx, combined.LeftSibling, rightSide, selfHandle)
		if err != nil {
			return false, fmt.Errorf("could not repair left sibling's link: %w", err)
		}
	}
	if !combined.RightSibling.IsNil() {
		err = relinkSibling(tx, combined.RightSibling, leftSide, selfHandle)
		if err != nil {
			return false, fmt.Errorf("could not repair right sibling's link: %w", err)
		}
	}

	err = tx.RemoveObject(self.LeftChild)
	if err != nil {
		return false, fmt.Errorf("could not remove left child: %w", err)
	}
	err = tx.RemoveObject(self.RightChild)
	if err != nil {
		return false, fmt.Errorf("could not remove right child: %w", err)
	}

	return true, nil
}

// maybeMerge merges self's children back into it if self is internal and
// merge accepts its two children (both leaves, average count within the
// split threshold). It is a no-op for anything else. Merge requests only
// ever come from a child leaf that just shrank.
func maybeMerge(tx datamgr.Manager, handle Handle) error {
	node, err := fetchNode(tx, handle)
	if err != nil {
		return fmt.Errorf("could not fetch node for merge: %w", err)
	}
	internal, ok := node.(*Internal)
	if !ok {
		return nil
	}
	_, err = merge(tx, handle, internal)
	return err
}
