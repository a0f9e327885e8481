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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optakt/pthm/testing/helpers"
)

// rawHashKey lets a test pick its own pre-mix hash, so it can place entries
// in a specific leaf and bucket deterministically instead of searching for
// colliding inputs. mixHash never touches bit 31 (every shift it XORs in is
// right-shifted out of that position), so routeBit at depth 0 is just the
// top bit of the raw value here.
type rawHashKey uint32

func (k rawHashKey) Hash() uint32 { return uint32(k) }

// S6: seek must not panic when the leaf it is about to cross into has been
// converted from a Leaf to an Internal by a split that happened earlier in
// the same transaction, after the iterator cached its old sibling link.
func TestIterator_SurvivesRightSiblingSplitMidIteration(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := New(tx, WithLeafCapacity(4), WithSplitFactor(1.0), WithMinConcurrency(2))
	require.NoError(t, err)

	root, err := fetchNode(tx, m.Root)
	require.NoError(t, err)
	internal, ok := root.(*Internal)
	require.True(t, ok, "min_concurrency=2 pre-splits the root once")

	// Two entries in the left leaf, at distinct buckets, so the iterator
	// takes more than one Next call to exhaust it. Their raw hash has bit 31
	// set, which routeBit(_, 0) reads as "route left".
	_, _, err = m.Put(tx, rawHashKey(1<<31), "left-0")
	require.NoError(t, err)
	_, _, err = m.Put(tx, rawHashKey(1<<31|1), "left-1")
	require.NoError(t, err)

	// Three entries in the right leaf, one below its split threshold of 4.
	_, _, err = m.Put(tx, rawHashKey(0), "right-0")
	require.NoError(t, err)
	_, _, err = m.Put(tx, rawHashKey(1), "right-1")
	require.NoError(t, err)
	_, _, err = m.Put(tx, rawHashKey(2), "right-2")
	require.NoError(t, err)

	it, err := newIterator(tx, m.Root)
	require.NoError(t, err)
	require.Equal(t, internal.LeftChild, it.leafHandle, "iterator must start at the leftmost leaf")

	k, v, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "left-0", v)
	_ = k
	require.Equal(t, internal.LeftChild, it.leafHandle, "first Next must not have crossed yet")

	// Push the right leaf over its split threshold in between Next calls,
	// the same way another operation in the transaction could. Its handle
	// is now an Internal; the left leaf's cached RightSibling still points
	// at it unchanged.
	_, _, err = m.Put(tx, rawHashKey(3), "right-3")
	require.NoError(t, err)
	rightNode, err := fetchNode(tx, internal.RightChild)
	require.NoError(t, err)
	_, stillLeaf := rightNode.(*Leaf)
	require.False(t, stillLeaf, "right leaf should have split under its own put")

	require.NotPanics(t, func() {
		k, v, ok, err = it.Next()
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "left-1", v)

	require.NotPanics(t, func() {
		k, v, ok, err = it.Next()
	})
	require.NoError(t, err)
	require.False(t, ok, "iterator must stop rather than follow a sibling link into a split leaf")
}

func TestIterator_RemoveIsUnsupported(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := New(tx)
	require.NoError(t, err)

	it, err := newIterator(tx, m.Root)
	require.NoError(t, err)

	err = it.Remove()
	require.True(t, errors.Is(err, ErrUnsupportedOperation))
}
