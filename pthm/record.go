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

// record is the on-disk shape of a node: a single flat struct carrying
// both variants' fields plus a flag saying which one is live. Converting
// through record keeps the wire format independent of the Leaf/Internal
// tagged-interface split used in memory, the same way the teacher codebase
// flattens its tagged node variants into one LightNode for storage.
type record struct {
	Leaf   bool
	Parent Handle
	Depth  uint8
	Params Params

	// Leaf-only fields.
	Buckets      []Handle
	Count        uint32
	LeftSibling  Handle
	RightSibling Handle

	// Internal-only fields.
	LeftChild  Handle
	RightChild Handle
}

func (r *record) toNode() Node {
	h := header{Parent: r.Parent, Depth: r.Depth, Params: r.Params}
	if r.Leaf {
		return &Leaf{
			header:       h,
			Buckets:      r.Buckets,
			Count:        r.Count,
			LeftSibling:  r.LeftSibling,
			RightSibling: r.RightSibling,
		}
	}
	return &Internal{
		header:     h,
		LeftChild:  r.LeftChild,
		RightChild: r.RightChild,
	}
}

func recordOf(n Node) *record {
	switch v := n.(type) {
	case *Leaf:
		return &record{
			Leaf:         true,
			Parent:       v.Parent,
			Depth:        v.Depth,
			Params:       v.Params,
			Buckets:      v.Buckets,
			Count:        v.Count,
			LeftSibling:  v.LeftSibling,
			RightSibling: v.RightSibling,
		}
	case *Internal:
		return &record{
			Leaf:       false,
			Parent:     v.Parent,
			Depth:      v.Depth,
			Params:     v.Params,
			LeftChild:  v.LeftChild,
			RightChild: v.RightChild,
		}
	default:
		panic(fmt.Sprintf("pthm: unknown node type %T", n))
	}
}

// fetchNode resolves handle to a Node through tx.
func fetchNode(tx datamgr.Manager, handle Handle) (Node, error) {
	var r record
	err := tx.Get(handle, &r)
	if err != nil {
		return nil, fmt.Errorf("could not fetch node %s: %w", handle, err)
	}
	return r.toNode(), nil
}

// createNode registers a brand-new node and returns its handle.
func createNode(tx datamgr.Manager, n Node) (Handle, error) {
	handle, err := tx.CreateRef(recordOf(n))
	if err != nil {
		return NilHandle, fmt.Errorf("could not create node: %w", err)
	}
	return handle, nil
}

// storeNode marks an existing node dirty and persists its new state.
func storeNode(tx datamgr.Manager, handle Handle, n Node) error {
	err := tx.MarkForUpdate(handle, recordOf(n))
	if err != nil {
		return fmt.Errorf("could not persist node %s: %w", handle, err)
	}
	return nil
}

func fetchLeaf(tx datamgr.Manager, handle Handle) (*Leaf, error) {
	node, err := fetchNode(tx, handle)
	if err != nil {
		return nil, err
	}
	leaf, ok := node.(*Leaf)
	invariant(ok, "node %s expected to be a leaf, got %T", handle, node)
	return leaf, nil
}

func fetchInternal(tx datamgr.Manager, handle Handle) (*Internal, error) {
	node, err := fetchNode(tx, handle)
	if err != nil {
		return nil, err
	}
	internal, ok := node.(*Internal)
	invariant(ok, "node %s expected to be internal, got %T", handle, node)
	return internal, nil
}
