// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package optimizer

import (
	"math"
	"runtime"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// ErrTooManyInputs signals a design whose input space cannot be indexed by a
// machine word, which both exhaustive metrics require.
var ErrTooManyInputs = errors.New("too many primary inputs")

// ersEvaluator estimates the error rate of a solution as the fraction of
// sampled input vectors on which the approximate circuit disagrees with the
// exact one.  When the sample covers a small part of the input space, the
// underlying reliability estimate is inflated into a one-sided confidence
// bound, shrinking the error objective by the same amount.
type ersEvaluator struct {
	domination
	opt *Optimizer
	// vectors sampled from the input space, without replacement.
	vectors []*bitset.BitSet
	// exact holds the reference outputs, parallel to vectors.
	exact []*bitset.BitSet
	// total is the size of the input space.
	total uint64
}

func (e *ersEvaluator) Setup() error {
	inputs := e.opt.graph.NumInputs
	//
	if inputs >= 64 {
		return errors.Wrapf(ErrTooManyInputs, "%d primary inputs", inputs)
	}
	//
	e.total = uint64(1) << inputs
	//
	n := uint64(e.opt.params.TestVectors)
	if n == 0 || n > e.total {
		n = e.total
	}
	//
	for _, index := range selectionSample(e.opt.rng, n, e.total) {
		vector := inputVector(index, inputs)
		e.vectors = append(e.vectors, vector)
		e.exact = append(e.exact, e.opt.graph.Evaluate(e.opt.order, e.opt.cat, nil, vector))
	}
	//
	return nil
}

func (e *ersEvaluator) Value(s Solution) [2]float64 {
	var (
		choice     = e.opt.choice(s)
		workers    = runtime.NumCPU()
		mismatches = make([]uint64, workers)
		wg         sync.WaitGroup
	)
	//
	for w := 0; w < workers; w++ {
		wg.Add(1)
		//
		go func() {
			defer wg.Done()
			//
			for i := w; i < len(e.vectors); i += workers {
				outputs := e.opt.graph.Evaluate(e.opt.order, e.opt.cat, choice, e.vectors[i])
				//
				if !outputs.Equal(e.exact[i]) {
					mismatches[w]++
				}
			}
		}()
	}
	//
	wg.Wait()
	//
	count := uint64(0)
	for _, m := range mismatches {
		count += m
	}
	//
	f := float64(count) / float64(len(e.vectors))
	//
	return [2]float64{e.correct(f), e.opt.gateRatio(s)}
}

// correct applies the Hanson-Wald confidence bonus to the reliability
// estimate underlying a sampled error fraction, whenever the sample covers
// less than a tenth of the input space.
func (e *ersEvaluator) correct(f float64) float64 {
	n := float64(len(e.vectors))
	//
	if 10*uint64(len(e.vectors)) >= e.total {
		return f
	}
	//
	r := 1 - f
	//
	return 1 - (r + (4.5/n)*(1+math.Sqrt(1+(4.0/9.0)*n*r*(1-r))))
}

// selectionSample draws n indices from [0, max) without replacement, in
// ascending order, visiting each candidate once.
func selectionSample(rng randSource, n, max uint64) []uint64 {
	var (
		sample = make([]uint64, 0, n)
		m      = uint64(0)
	)
	//
	for t := uint64(0); t < max && m < n; t++ {
		if float64(max-t)*rng.Float64() < float64(n-m) {
			sample = append(sample, t)
			m++
		}
	}
	//
	return sample
}

// randSource is the slice of *rand.Rand the sampler relies upon.
type randSource interface {
	Float64() float64
}

// inputVector expands an input-space index into the bit vector feeding the
// primary inputs, least significant bit first.
func inputVector(index uint64, width uint) *bitset.BitSet {
	vector := bitset.New(width)
	//
	for i := uint(0); i < width; i++ {
		vector.SetTo(i, index&(1<<i) != 0)
	}
	//
	return vector
}
