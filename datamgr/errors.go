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

package datamgr

import "errors"

// Sentinel errors returned by a Tx. Callers compare against these with
// errors.Is; the store never returns a bare badger error across the package
// boundary.
var (
	// ErrObjectNotFound is returned when a handle no longer resolves to a
	// live object in the store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrConcurrentTransactionAborted is returned when the enclosing
	// transaction lost an optimistic conflict at commit time and must be
	// retried by the caller.
	ErrConcurrentTransactionAborted = errors.New("concurrent transaction aborted")
)
