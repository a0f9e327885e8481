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

import "github.com/optakt/pthm/datamgr"

// Handle is a durable reference to a node, entry, or box held by the store.
type Handle = datamgr.Handle

// NilHandle marks an absent link: no parent, no sibling, no child.
var NilHandle = datamgr.NilHandle

// header is the state every node carries regardless of variant.
type header struct {
	Parent Handle
	Depth  uint8
	Params Params
}

// Node is either a *Leaf or an *Internal. The two never share a Go type, so
// "a node is either a leaf or internal, never mixed" is enforced by the
// compiler rather than by a nil check on a shared struct.
type Node interface {
	isNode()
}

// Leaf holds data: a fixed-size array of entry-chain heads, plus links to
// its immediate left and right neighbor in trie order.
type Leaf struct {
	header
	Buckets      []Handle
	Count        uint32
	LeftSibling  Handle
	RightSibling Handle
}

func (*Leaf) isNode() {}

// Internal routes: it holds no entries, only two children.
type Internal struct {
	header
	LeftChild  Handle
	RightChild Handle
}

func (*Internal) isNode() {}
