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

package datamgr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/pthm/datamgr"
	"github.com/optakt/pthm/testing/helpers"
)

type widget struct {
	Name  string
	Count int
}

func TestTx_CreateGetRemove(t *testing.T) {
	store := helpers.InMemoryStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	handle, err := tx.CreateRef(&widget{Name: "gear", Count: 3})
	require.NoError(t, err)
	assert.False(t, handle.IsNil())

	var got widget
	err = tx.Get(handle, &got)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "gear", Count: 3}, got)

	err = tx.MarkForUpdate(handle, &widget{Name: "gear", Count: 4})
	require.NoError(t, err)

	err = tx.Get(handle, &got)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Count)

	err = tx.RemoveObject(handle)
	require.NoError(t, err)

	err = tx.Get(handle, &got)
	assert.ErrorIs(t, err, datamgr.ErrObjectNotFound)

	require.NoError(t, tx.Commit())
}

func TestTx_GetMissingHandle(t *testing.T) {
	store := helpers.InMemoryStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Discard()

	var got widget
	err = tx.Get(datamgr.NilHandle, &got)
	assert.ErrorIs(t, err, datamgr.ErrObjectNotFound)
}

func TestTx_IsManaged(t *testing.T) {
	store := helpers.InMemoryStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Discard()

	handle, err := tx.CreateRef(&widget{Name: "gear"})
	require.NoError(t, err)

	assert.True(t, tx.IsManaged(handle))
	assert.False(t, tx.IsManaged(&widget{Name: "gear"}))
}

func TestTx_CommitIsolatesUntilCommitted(t *testing.T) {
	store := helpers.InMemoryStore(t)
	ctx := context.Background()

	writer, err := store.Begin(ctx)
	require.NoError(t, err)

	handle, err := writer.CreateRef(&widget{Name: "a"})
	require.NoError(t, err)

	reader, err := store.Begin(ctx)
	require.NoError(t, err)
	defer reader.Discard()

	var got widget
	err = reader.Get(handle, &got)
	assert.ErrorIs(t, err, datamgr.ErrObjectNotFound)

	require.NoError(t, writer.Commit())
}
