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
	"fmt"

	"github.com/optakt/pthm/datamgr"
)

// Box is a store object PTHM allocates to wrap a key or value that is not
// itself a store citizen. Its lifetime is owned by the entry that
// references it: PTHM destroys it when the entry is removed or overwritten,
// never the caller.
//
// Kind records which of a handful of well-known scalar types Value was
// built from. CBOR happily round-trips a bare interface{} field, but only
// into whichever concrete Go type its own decode rules default to (every
// non-negative integer becomes uint64, every negative one int64): without
// Kind, a box put as an int would come back a uint64 or int64 and silently
// fail every subsequent equality check against a native int key. Values outside the known kinds are stored as-is and
// decode however cbor's generic interface{} rules leave them; callers that
// need an arbitrary struct's exact type preserved should create it through
// the Data Manager themselves and store its Handle instead of boxing it.
type Box struct {
	Kind  boxKind
	Value interface{}
}

type boxKind uint8

const (
	kindGeneric boxKind = iota
	kindInt
	kindInt32
	kindInt64
	kindUint
	kindUint32
	kindUint64
	kindFloat32
	kindFloat64
	kindString
	kindBytes
	kindBool
)

func newBox(v interface{}) *Box {
	switch x := v.(type) {
	case int:
		return &Box{Kind: kindInt, Value: int64(x)}
	case int32:
		return &Box{Kind: kindInt32, Value: int64(x)}
	case int64:
		return &Box{Kind: kindInt64, Value: x}
	case uint:
		return &Box{Kind: kindUint, Value: uint64(x)}
	case uint32:
		return &Box{Kind: kindUint32, Value: uint64(x)}
	case uint64:
		return &Box{Kind: kindUint64, Value: x}
	case float32:
		return &Box{Kind: kindFloat32, Value: float64(x)}
	case float64:
		return &Box{Kind: kindFloat64, Value: x}
	case string:
		return &Box{Kind: kindString, Value: x}
	case []byte:
		return &Box{Kind: kindBytes, Value: x}
	case bool:
		return &Box{Kind: kindBool, Value: x}
	default:
		return &Box{Kind: kindGeneric, Value: v}
	}
}

// unwrap reverses newBox, restoring the exact scalar type a known Kind was
// built from.
func (b *Box) unwrap() interface{} {
	// Signed kinds are stored as int64, but a non-negative one decodes as
	// uint64.
	signed := b.Value
	if u, ok := signed.(uint64); ok {
		signed = int64(u)
	}
	switch b.Kind {
	case kindInt:
		return int(signed.(int64))
	case kindInt32:
		return int32(signed.(int64))
	case kindInt64:
		return signed.(int64)
	case kindUint:
		return uint(b.Value.(uint64))
	case kindUint32:
		return uint32(b.Value.(uint64))
	case kindUint64:
		return b.Value.(uint64)
	case kindFloat32:
		return float32(b.Value.(float64))
	case kindFloat64:
		return b.Value.(float64)
	case kindString:
		return b.Value.(string)
	case kindBytes:
		return b.Value.([]byte)
	case kindBool:
		return b.Value.(bool)
	default:
		return b.Value
	}
}

// refValue registers v with the store, boxing it unless it is already
// store-managed. It returns the handle to reference from an entry and
// whether that handle points to a box PTHM owns.
func refValue(tx datamgr.Manager, v interface{}) (handle Handle, boxed bool, err error) {
	if tx.IsManaged(v) {
		h, ok := v.(Handle)
		if !ok {
			return NilHandle, false, fmt.Errorf("pthm: managed value of type %T must be a datamgr.Handle", v)
		}
		return h, false, nil
	}

	h, err := tx.CreateRef(newBox(v))
	if err != nil {
		return NilHandle, false, fmt.Errorf("could not box value: %w", err)
	}
	return h, true, nil
}

// derefValue resolves a handle recorded on an entry back to the Go value it
// represents.
func derefValue(tx datamgr.Manager, handle Handle, boxed bool) (interface{}, error) {
	if !boxed {
		return handle, nil
	}
	var box Box
	err := tx.Get(handle, &box)
	if err != nil {
		return nil, fmt.Errorf("could not unbox value: %w", err)
	}
	return box.unwrap(), nil
}

// reboxValue replaces the value referenced by an existing entry side,
// reusing the box in place when both the old and new side are boxed
// values, so overwriting a key or value with another non-managed value
// never allocates a new box.
func reboxValue(tx datamgr.Manager, oldHandle Handle, oldBoxed bool, v interface{}) (handle Handle, boxed bool, err error) {
	managed := tx.IsManaged(v)

	if oldBoxed && !managed {
		err := tx.MarkForUpdate(oldHandle, newBox(v))
		if err != nil {
			return NilHandle, false, fmt.Errorf("could not update boxed value: %w", err)
		}
		return oldHandle, true, nil
	}

	if oldBoxed {
		err := tx.RemoveObject(oldHandle)
		if err != nil {
			return NilHandle, false, fmt.Errorf("could not destroy superseded box: %w", err)
		}
	}

	return refValue(tx, v)
}

// destroyValue removes the box backing an entry side, if PTHM owns one.
// Managed objects are never touched: their lifetime belongs to the caller.
func destroyValue(tx datamgr.Manager, handle Handle, boxed bool) error {
	if !boxed {
		return nil
	}
	err := tx.RemoveObject(handle)
	if err != nil {
		return fmt.Errorf("could not destroy box: %w", err)
	}
	return nil
}
