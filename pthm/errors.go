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
	"errors"
	"fmt"

	"github.com/optakt/pthm/datamgr"
)

// Sentinel errors. ErrObjectNotFound and ErrConcurrentTransactionAborted
// are re-exported from datamgr so callers never need to import both
// packages just to use errors.Is.
var (
	// ErrInvalidArgument is returned by New when a constructor option
	// violates one of the documented constraints.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedOperation is returned by iterator Remove, which PTHM
	// does not implement.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrObjectNotFound is returned when a handle reachable from the trie
	// no longer resolves to a live object in the store.
	ErrObjectNotFound = datamgr.ErrObjectNotFound

	// ErrConcurrentTransactionAborted is returned when the transaction
	// backing an operation lost an optimistic write conflict.
	ErrConcurrentTransactionAborted = datamgr.ErrConcurrentTransactionAborted
)

// invariant panics if cond is false. PTHM invariant violations (a node
// whose variant is inconsistent with its handle, a depth that has escaped
// its bound) indicate on-disk corruption, not a condition a caller can
// recover from, so they are fatal rather than returned as errors, per the
// error handling design.
func invariant(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	panic(fmt.Errorf("pthm: invariant violated: "+format, args...))
}
