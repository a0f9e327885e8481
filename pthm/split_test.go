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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optakt/pthm/testing/helpers"
)

// S2: five keys into a capacity-4 root leaf trigger exactly one split (when
// the fourth brings its count to the split threshold), the entries are
// partitioned by their top hash bit, and every key survives the split
// retrievable from whichever child it lands in.
func TestSplit_PartitionsEntriesByTopBit(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := New(tx, WithLeafCapacity(4), WithSplitFactor(1.0))
	require.NoError(t, err)

	// uint32 keys hash to themselves and mixHash leaves bit 31 as it is, so
	// keys with bit 31 set go left and small keys go right: two left, three
	// right, and no child reaches the threshold of 4 after the split.
	keys := []uint32{0, 1 << 31, 1, 1<<31 | 1, 2}
	for i, k := range keys {
		_, _, err = m.Put(tx, k, i*10)
		require.NoError(t, err)
	}

	node, err := fetchNode(tx, m.Root)
	require.NoError(t, err)
	internal, ok := node.(*Internal)
	require.True(t, ok, "root should have become internal after crossing the split threshold")

	left, err := fetchLeaf(tx, internal.LeftChild)
	require.NoError(t, err)
	right, err := fetchLeaf(tx, internal.RightChild)
	require.NoError(t, err)

	require.LessOrEqual(t, left.Count, uint32(4))
	require.LessOrEqual(t, right.Count, uint32(4))
	require.Equal(t, uint32(5), left.Count+right.Count)

	require.True(t, left.RightSibling == internal.RightChild)
	require.True(t, right.LeftSibling == internal.LeftChild)

	for i, k := range keys {
		v, ok, err := m.Get(tx, k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*10, v)
	}
}

func TestEnsureDepth_PreSplitsBreadthFirst(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := New(tx, WithMinConcurrency(4))
	require.NoError(t, err)

	node, err := fetchNode(tx, m.Root)
	require.NoError(t, err)
	root, ok := node.(*Internal)
	require.True(t, ok)

	for _, childHandle := range []Handle{root.LeftChild, root.RightChild} {
		child, err := fetchNode(tx, childHandle)
		require.NoError(t, err)
		grandparent, ok := child.(*Internal)
		require.True(t, ok, "pre-split to min_concurrency=4 requires depth 2 everywhere")
		require.Equal(t, uint8(1), grandparent.Depth)
	}

	_, leaf, err := leftmostLeaf(tx, m.Root)
	require.NoError(t, err)
	require.Equal(t, uint8(2), leaf.Depth)
}
