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

// Package helpers collects small fixtures shared by tests across the module.
package helpers

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/optakt/pthm/datamgr"
)

// NoopLogger discards everything written to it.
var NoopLogger = zerolog.New(io.Discard)

// InMemoryStore opens a datamgr.Store that keeps all data in memory and is
// closed automatically when the test finishes.
func InMemoryStore(t *testing.T) *datamgr.Store {
	t.Helper()

	store, err := datamgr.NewStore(NoopLogger, datamgr.WithInMemory(true))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
