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
	"math"
	"math/bits"

	"github.com/go-playground/validator/v10"
)

// MaxDepth is the deepest a leaf is ever allowed to go. A leaf at MaxDepth
// never splits, even over threshold, because a hash only has 32 bits to
// route on.
const MaxDepth = 32

// Default construction values, per the public API.
const (
	DefaultMinConcurrency = 1
	DefaultSplitFactor    = 1.0
	DefaultMergeFactor    = 0.25
	DefaultLeafCapacity   = 128
)

// MergeThresholdMode selects how the merge threshold is derived from the
// configured factors. The source this design is ported from computed it
// using SplitFactor, which only coincidentally works when SplitFactor and
// MergeFactor are close; ModeCorrected fixes that, and is the default.
// ModeLiteral is kept for anyone who needs to reproduce the original,
// suspect, behavior bit-for-bit. See DESIGN.md, Open Question (b).
type MergeThresholdMode uint8

const (
	// ModeCorrected derives merge_threshold = merge_factor * capacity.
	ModeCorrected MergeThresholdMode = iota
	// ModeLiteral derives merge_threshold = min(split_factor*capacity, split_threshold-1).
	ModeLiteral
)

// Params holds the tuning parameters a root is constructed with, plus the
// values derived from them. Every node in a map carries a copy, inherited
// unchanged from the root at split time, so a leaf can decide on its own
// whether to split or request a merge without consulting anything but
// itself.
type Params struct {
	MinConcurrency     int     `validate:"gt=0"`
	SplitFactor        float64 `validate:"gt=0"`
	MergeFactor        float64 `validate:"gte=0"`
	LeafCapacity       int     `validate:"gt=0"`
	MergeThresholdMode MergeThresholdMode

	// Derived fields, computed once in newParams and never recomputed.
	MinDepth       uint8
	SplitThreshold uint32
	MergeThreshold uint32
	BucketCount    int
}

// Option configures a Map at construction time.
type Option func(*Params)

// WithMinConcurrency sets the minimum number of leaves the tree is
// pre-split to at construction, so that at least min_concurrency disjoint
// writers can proceed without touching the same leaf from the outset.
func WithMinConcurrency(n int) Option {
	return func(p *Params) { p.MinConcurrency = n }
}

// WithSplitFactor sets the fraction of leaf_capacity a leaf's count must
// reach before it splits.
func WithSplitFactor(factor float64) Option {
	return func(p *Params) { p.SplitFactor = factor }
}

// WithMergeFactor sets the fraction of leaf_capacity a leaf's count must
// fall below before its parent is asked to merge it with its sibling.
func WithMergeFactor(factor float64) Option {
	return func(p *Params) { p.MergeFactor = factor }
}

// WithLeafCapacity sets the nominal number of entries a leaf holds before
// splitting under the default split factor.
func WithLeafCapacity(capacity int) Option {
	return func(p *Params) { p.LeafCapacity = capacity }
}

// WithMergeThresholdMode selects the merge threshold derivation. Defaults
// to ModeCorrected.
func WithMergeThresholdMode(mode MergeThresholdMode) Option {
	return func(p *Params) { p.MergeThresholdMode = mode }
}

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(paramsValidator, Params{})
}

// paramsValidator enforces the one constraint the struct tags on Params
// cannot express: merge_factor must stay strictly below split_factor, or a
// leaf that just shrank past the merge threshold would immediately split
// again once merged.
func paramsValidator(sl validator.StructLevel) {
	p := sl.Current().Interface().(Params)
	if p.MergeFactor >= p.SplitFactor {
		sl.ReportError(p.MergeFactor, "MergeFactor", "MergeFactor", "ltfield_dynamic", "SplitFactor")
	}
}

// newParams applies options over the documented defaults, validates the
// result, and computes the derived fields.
func newParams(opts ...Option) (Params, error) {
	p := Params{
		MinConcurrency: DefaultMinConcurrency,
		SplitFactor:    DefaultSplitFactor,
		MergeFactor:    DefaultMergeFactor,
		LeafCapacity:   DefaultLeafCapacity,
	}
	for _, opt := range opts {
		opt(&p)
	}

	err := validate.Struct(p)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	minDepth := bits.Len(uint(p.MinConcurrency - 1))
	if minDepth > MaxDepth {
		return Params{}, fmt.Errorf("%w: min_concurrency %d requires depth %d beyond the maximum of %d",
			ErrInvalidArgument, p.MinConcurrency, minDepth, MaxDepth)
	}
	p.MinDepth = uint8(minDepth)

	p.SplitThreshold = uint32(math.Ceil(p.SplitFactor * float64(p.LeafCapacity)))

	switch p.MergeThresholdMode {
	case ModeLiteral:
		literal := p.SplitFactor * float64(p.LeafCapacity)
		if literal > float64(p.SplitThreshold)-1 {
			literal = float64(p.SplitThreshold) - 1
		}
		if literal < 0 {
			literal = 0
		}
		p.MergeThreshold = uint32(literal)
	default:
		p.MergeThreshold = uint32(math.Floor(p.MergeFactor * float64(p.LeafCapacity)))
	}

	p.BucketCount = nextPow2(p.LeafCapacity)

	return p, nil
}

// nextPow2 rounds n up to the next power of two, so a hash can be mapped to
// a bucket index with a mask instead of a modulo.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
