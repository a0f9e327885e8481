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

// Package pthmcbor encodes and decodes PTHM nodes and entries for storage.
package pthmcbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// CompressThreshold is the encoded size, in bytes, above which a value is
// zstd-compressed before being written to the store. Small leaves compress
// poorly and the framing overhead outweighs the savings.
const CompressThreshold = 256

// Codec encodes and decodes Go values using canonical CBOR, optionally
// compressed with zstandard once the encoded form is large enough.
type Codec struct {
	encoder cbor.EncMode
	decoder cbor.DecMode

	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewCodec creates a new Codec.
func NewCodec() *Codec {

	// We should never fail here if the options are valid, so use panic to keep
	// the function signature for the codec clean.
	encOptions := cbor.CanonicalEncOptions()
	encoder, err := encOptions.EncMode()
	if err != nil {
		panic(err)
	}

	decOptions := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}
	decoder, err := decOptions.DecMode()
	if err != nil {
		panic(err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}

	c := Codec{
		encoder:      encoder,
		decoder:      decoder,
		compressor:   compressor,
		decompressor: decompressor,
	}

	return &c
}

// Marshal encodes the given value as CBOR and compresses the result if it is
// larger than CompressThreshold. The first byte of the returned slice flags
// whether the remainder is compressed, so Unmarshal does not need to be told.
func (c *Codec) Marshal(value interface{}) ([]byte, error) {
	data, err := c.encoder.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}

	if len(data) < CompressThreshold {
		return append([]byte{0}, data...), nil
	}

	compressed := c.compressor.EncodeAll(data, []byte{1})
	return compressed, nil
}

// Unmarshal decodes data produced by Marshal into the given value.
func (c *Codec) Unmarshal(data []byte, value interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}

	flag, body := data[0], data[1:]

	var plain []byte
	switch flag {
	case 0:
		plain = body
	case 1:
		decoded, err := c.decompressor.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("could not decompress value: %w", err)
		}
		plain = decoded
	default:
		return fmt.Errorf("unknown payload flag (%d)", flag)
	}

	err := c.decoder.Unmarshal(plain, value)
	if err != nil {
		return fmt.Errorf("could not decode value: %w", err)
	}

	return nil
}
