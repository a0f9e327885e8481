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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParams_Defaults(t *testing.T) {
	p, err := newParams()
	require.NoError(t, err)

	assert.Equal(t, DefaultMinConcurrency, p.MinConcurrency)
	assert.Equal(t, DefaultSplitFactor, p.SplitFactor)
	assert.Equal(t, DefaultMergeFactor, p.MergeFactor)
	assert.Equal(t, DefaultLeafCapacity, p.LeafCapacity)
	assert.Equal(t, uint8(0), p.MinDepth)
	assert.Equal(t, uint32(128), p.SplitThreshold)
	assert.Equal(t, uint32(32), p.MergeThreshold)
	assert.Equal(t, 128, p.BucketCount)
}

func TestNewParams_MinDepthFromMinConcurrency(t *testing.T) {
	cases := map[int]uint8{
		1: 0,
		2: 1,
		3: 2,
		4: 2,
		5: 3,
		8: 3,
		9: 4,
	}
	for concurrency, expected := range cases {
		p, err := newParams(WithMinConcurrency(concurrency))
		require.NoError(t, err)
		assert.Equalf(t, expected, p.MinDepth, "min_concurrency=%d", concurrency)
	}
}

func TestNewParams_RejectsInvalidArguments(t *testing.T) {
	_, err := newParams(WithMinConcurrency(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = newParams(WithSplitFactor(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = newParams(WithMergeFactor(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = newParams(WithMergeFactor(1), WithSplitFactor(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewParams_MergeThresholdModes(t *testing.T) {
	corrected, err := newParams(WithLeafCapacity(4), WithMergeFactor(0.25), WithSplitFactor(1.0))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), corrected.MergeThreshold)

	literal, err := newParams(WithLeafCapacity(4), WithMergeFactor(0.25), WithSplitFactor(1.0), WithMergeThresholdMode(ModeLiteral))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), literal.MergeThreshold)
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 128: 128, 129: 256}
	for n, expected := range cases {
		assert.Equalf(t, expected, nextPow2(n), "n=%d", n)
	}
}
