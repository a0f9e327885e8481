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

package pthm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/pthm/pthm"
	"github.com/optakt/pthm/testing/helpers"
)

type widget struct {
	Label string
}

func TestMap_RoundTrip(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx)
	require.NoError(t, err)

	_, existed, err := m.Put(tx, "alpha", 1)
	require.NoError(t, err)
	require.False(t, existed)

	v, ok, err := m.Get(tx, "alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	has, err := m.ContainsKey(tx, "alpha")
	require.NoError(t, err)
	require.True(t, has)

	old, existed, err := m.Remove(tx, "alpha")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, 1, old)

	_, ok, err = m.Get(tx, "alpha")
	require.NoError(t, err)
	require.False(t, ok)

	has, err = m.ContainsKey(tx, "alpha")
	require.NoError(t, err)
	require.False(t, has)
}

// S5.
func TestMap_NullKey(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx)
	require.NoError(t, err)

	_, _, err = m.Put(tx, nil, 42)
	require.NoError(t, err)
	_, _, err = m.Put(tx, nil, 43)
	require.NoError(t, err)

	v, ok, err := m.Get(tx, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 43, v)

	old, existed, err := m.Remove(tx, nil)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, 43, old)

	_, ok, err = m.Get(tx, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

// S1.
func TestMap_GrowAndIterate(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx, pthm.WithLeafCapacity(4), pthm.WithSplitFactor(1.0))
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		_, _, err = m.Put(tx, i, i)
		require.NoError(t, err)
	}

	size, err := m.Size(tx)
	require.NoError(t, err)
	require.Equal(t, 32, size)

	seen := make(map[int]bool, 32)
	err = m.Entries().Iterate(tx, func(e pthm.Entry) (bool, error) {
		seen[e.Key.(int)] = true
		assert.Equal(t, e.Key, e.Value)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 32)
}

// S4.
func TestMap_BoxingLifetime(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx)
	require.NoError(t, err)

	_, _, err = m.Put(tx, "key", "v1")
	require.NoError(t, err)

	managedHandle, err := tx.CreateRef(&widget{Label: "managed"})
	require.NoError(t, err)

	old, existed, err := m.Put(tx, "key", "v2")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, "v1", old)

	old, existed, err = m.Put(tx, "key", managedHandle)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, "v2", old)

	v, ok, err := m.Get(tx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, managedHandle, v)

	_, existed, err = m.Remove(tx, "key")
	require.NoError(t, err)
	require.True(t, existed)

	var still widget
	err = tx.Get(managedHandle, &still)
	require.NoError(t, err, "managed objects outlive the entry that referenced them")
}

func TestMap_ClearResetsToEmptyLeaf(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx, pthm.WithLeafCapacity(4), pthm.WithSplitFactor(1.0))
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		_, _, err = m.Put(tx, i, i)
		require.NoError(t, err)
	}

	err = m.Clear(tx)
	require.NoError(t, err)

	size, err := m.Size(tx)
	require.NoError(t, err)
	require.Equal(t, 0, size)

	empty, err := m.IsEmpty(tx)
	require.NoError(t, err)
	require.True(t, empty)

	_, _, err = m.Put(tx, "after-clear", true)
	require.NoError(t, err)
	v, ok, err := m.Get(tx, "after-clear")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, true, v)
}

func TestMap_PutAll(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx)
	require.NoError(t, err)

	source := map[interface{}]interface{}{
		"a": 1,
		"b": 2,
		"c": 3,
	}
	err = m.PutAll(tx, source)
	require.NoError(t, err)

	size, err := m.Size(tx)
	require.NoError(t, err)
	require.Equal(t, 3, size)

	for k, want := range source {
		got, ok, err := m.Get(tx, k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

// S6: an iterator must not surface concurrent structural change as an
// error, and must still terminate.
func TestMap_IteratorToleratesConcurrentMutation(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Discard()

	m, err := pthm.New(tx, pthm.WithLeafCapacity(4), pthm.WithSplitFactor(1.0))
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		_, _, err = m.Put(tx, i, i)
		require.NoError(t, err)
	}

	count := 0
	err = m.Entries().Iterate(tx, func(e pthm.Entry) (bool, error) {
		count++
		if count == 1 {
			_, _, err := m.Put(tx, 1000, 1000)
			if err != nil {
				return false, err
			}
			_, _, err = m.Remove(tx, e.Key)
			if err != nil {
				return false, err
			}
		}
		return true, nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 1)
}
