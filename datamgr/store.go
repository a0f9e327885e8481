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

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/optakt/pthm/codec/pthmcbor"
)

// Store is the reference Data Manager: a transactional object store backed
// by an embedded badger database. Handles are badger keys; objects are
// CBOR-encoded values. Optimistic conflict detection is whatever badger's
// serializable snapshot isolation provides for the keys a Tx touches.
type Store struct {
	log   zerolog.Logger
	db    *badger.DB
	codec *pthmcbor.Codec
	sema  *semaphore.Weighted
}

// NewStore opens a store at the configured path (or purely in memory).
func NewStore(log zerolog.Logger, opts ...Option) (*Store, error) {
	logger := log.With().Str("component", "data_manager").Logger()

	config := DefaultConfig
	for _, opt := range opts {
		opt(&config)
	}

	badgerOpts := badger.DefaultOptions(config.StoragePath)
	badgerOpts.Logger = nil
	badgerOpts.InMemory = config.InMemory
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open object store: %w", err)
	}

	s := Store{
		log:   logger,
		db:    db,
		codec: pthmcbor.NewCodec(),
		sema:  semaphore.NewWeighted(config.MaxInFlightTxns),
	}

	return &s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("could not close object store: %w", err)
	}
	return nil
}

// Begin starts a new transaction. The caller must Commit or Discard it; the
// call blocks until a slot under MaxInFlightTxns is available or ctx is
// cancelled.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	err := s.sema.Acquire(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("could not acquire transaction slot: %w", err)
	}

	tx := Tx{
		log:   s.log,
		txn:   s.db.NewTransaction(true),
		codec: s.codec,
		sema:  s.sema,
	}

	return &tx, nil
}

// Tx is one transactional view of a Store. Every top-level PTHM operation
// runs inside one Tx, and its effects are visible to other transactions only
// once Commit succeeds.
type Tx struct {
	log   zerolog.Logger
	txn   *badger.Txn
	codec *pthmcbor.Codec
	sema  *semaphore.Weighted
	done  bool
}

// CreateRef registers a newly constructed object and returns a durable
// handle for it.
func (tx *Tx) CreateRef(obj interface{}) (Handle, error) {
	handle := newHandle()

	data, err := tx.codec.Marshal(obj)
	if err != nil {
		return NilHandle, fmt.Errorf("could not encode object: %w", err)
	}

	err = tx.txn.Set(handle.Bytes(), data)
	if err != nil {
		return NilHandle, fmt.Errorf("could not store object: %w", err)
	}

	return handle, nil
}

// Get resolves a handle to the current object state inside this transaction.
func (tx *Tx) Get(handle Handle, out interface{}) error {
	item, err := tx.txn.Get(handle.Bytes())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("handle %s: %w", handle, ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("could not look up object %s: %w", handle, err)
	}

	err = item.Value(func(data []byte) error {
		return tx.codec.Unmarshal(data, out)
	})
	if err != nil {
		return fmt.Errorf("could not decode object %s: %w", handle, err)
	}

	return nil
}

// MarkForUpdate signals intent to write the object at handle and persists
// its new state. Badger only flags a write conflict for keys it has also
// seen read in the same transaction, so callers that mutate through Get
// followed by MarkForUpdate get the conflict detection the design relies on
// for free; callers that call MarkForUpdate without a preceding Get on the
// same handle get last-writer-wins instead, which is the caller's choice.
func (tx *Tx) MarkForUpdate(handle Handle, obj interface{}) error {
	data, err := tx.codec.Marshal(obj)
	if err != nil {
		return fmt.Errorf("could not encode object: %w", err)
	}

	err = tx.txn.Set(handle.Bytes(), data)
	if err != nil {
		return fmt.Errorf("could not persist object %s: %w", handle, err)
	}

	return nil
}

// RemoveObject deletes the object at handle from the store.
func (tx *Tx) RemoveObject(handle Handle) error {
	err := tx.txn.Delete(handle.Bytes())
	if err != nil {
		return fmt.Errorf("could not remove object %s: %w", handle, err)
	}
	return nil
}

// IsManaged reports whether obj is itself a durable Handle the caller
// already holds, which decides whether PTHM boxes it before referencing it
// from an entry. Anything that is not literally a Handle gets boxed, since
// there would otherwise be no handle value to record on the entry.
func (tx *Tx) IsManaged(obj interface{}) bool {
	switch obj.(type) {
	case Handle, *Handle:
		return true
	}
	return false
}

// Commit finalizes the transaction, making its effects visible to other
// transactions. A conflict with a concurrent writer surfaces as
// ErrConcurrentTransactionAborted; the caller is expected to retry the
// whole operation.
func (tx *Tx) Commit() error {
	defer tx.release()

	err := tx.txn.Commit()
	if errors.Is(err, badger.ErrConflict) {
		return ErrConcurrentTransactionAborted
	}
	if err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Discard abandons the transaction; none of its effects are persisted.
func (tx *Tx) Discard() {
	defer tx.release()
	tx.txn.Discard()
}

func (tx *Tx) release() {
	if tx.done {
		return
	}
	tx.done = true
	tx.sema.Release(1)
}
