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

// epsMaxEvaluator computes the worst-case numeric error of a solution over
// the entire input space.  Output bits are weighted by their numeric
// significance, so the metric only makes sense for designs whose outputs
// encode a binary number.
type epsMaxEvaluator struct {
	domination
	opt *Optimizer
	// shifts gives the numeric significance of each output, in topological
	// output order.
	shifts []uint
	// exact holds the reference output value of every input-space index.
	exact []uint64
}

func (e *epsMaxEvaluator) Setup() error {
	inputs := e.opt.graph.NumInputs
	//
	if inputs >= 64 {
		return errors.Wrapf(ErrTooManyInputs, "%d primary inputs", inputs)
	}
	//
	e.shifts = e.outputShifts()
	e.exact = make([]uint64, uint64(1)<<inputs)
	//
	e.forAll(func(index uint64, outputs *bitset.BitSet) {
		e.exact[index] = e.numeric(outputs)
	}, nil)
	//
	return nil
}

func (e *epsMaxEvaluator) Value(s Solution) [2]float64 {
	var (
		workers = runtime.NumCPU()
		worst   = make([]uint64, workers)
	)
	//
	e.forAllChunked(e.opt.choice(s), func(w int, index uint64, outputs *bitset.BitSet) {
		var (
			got  = e.numeric(outputs)
			want = e.exact[index]
		)
		//
		if diff := absDiff(got, want); diff > worst[w] {
			worst[w] = diff
		}
	})
	//
	maxErr := uint64(0)
	for _, w := range worst {
		maxErr = max(maxErr, w)
	}
	//
	return [2]float64{float64(maxErr), e.opt.gateRatio(s)}
}

// forAll evaluates the circuit on every input-space index under a given
// variant choice.
func (e *epsMaxEvaluator) forAll(fn func(uint64, *bitset.BitSet), choice map[uint]uint) {
	e.forAllChunked(choice, func(_ int, index uint64, outputs *bitset.BitSet) {
		fn(index, outputs)
	})
}

// forAllChunked partitions the input space across one worker per CPU.  The
// callback receives the worker index, letting callers keep per-worker
// accumulators.
func (e *epsMaxEvaluator) forAllChunked(choice map[uint]uint,
	fn func(int, uint64, *bitset.BitSet)) {
	//
	var (
		workers = runtime.NumCPU()
		total   = uint64(1) << e.opt.graph.NumInputs
		inputs  = e.opt.graph.NumInputs
		wg      sync.WaitGroup
	)
	//
	for w := 0; w < workers; w++ {
		wg.Add(1)
		//
		go func() {
			defer wg.Done()
			//
			for index := uint64(w); index < total; index += uint64(workers) {
				vector := inputVector(index, inputs)
				outputs := e.opt.graph.Evaluate(e.opt.order, e.opt.cat, choice, vector)
				fn(w, index, outputs)
			}
		}()
	}
	//
	wg.Wait()
}

// numeric folds an output bit vector into the number it encodes.
func (e *epsMaxEvaluator) numeric(outputs *bitset.BitSet) uint64 {
	value := uint64(0)
	//
	for k, shift := range e.shifts {
		if outputs.Test(uint(k)) {
			value += uint64(1) << shift
		}
	}
	//
	return value
}

// outputShifts derives the numeric significance of each output vertex.  With
// explicit weights configured, an output's significance is the exponent of
// its weight; otherwise outputs are taken to be already ordered by ascending
// significance.
func (e *epsMaxEvaluator) outputShifts() []uint {
	outputs := e.opt.graph.Outputs(e.opt.order)
	shifts := make([]uint, len(outputs))
	//
	for k, handle := range outputs {
		if weight, ok := e.opt.outputWeight(handle); ok && weight > 0 {
			shifts[k] = uint(math.Round(math.Log2(weight)))
		} else {
			shifts[k] = uint(k)
		}
	}
	//
	return shifts
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	//
	return b - a
}
