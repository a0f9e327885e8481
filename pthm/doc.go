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

// Package pthm implements the prefix-tree hash map: a concurrent key-value
// map whose internal nodes are independently stored objects reachable
// through durable handles from a datamgr.Store. The map is a binary trie of
// hash buckets. Internal nodes only route; leaves hold fixed-capacity
// bucket tables and are linked to their left and right neighbor in
// traversal order, so a typical mutation only ever dirties one leaf and
// iteration is a linear sweep across the leaf chain.
//
// Every operation takes a datamgr.Manager explicitly: the map itself holds
// no connection to the store and no lock, and depends only on the Data
// Manager contract, not on datamgr.Tx's concrete type. All concurrency
// control is delegated to the transaction's Commit, which fails with
// ErrConcurrentTransactionAborted if another transaction committed a
// conflicting write first.
package pthm
