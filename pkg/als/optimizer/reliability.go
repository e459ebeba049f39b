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

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/mat"

	"github.com/consensys/go-als/pkg/als/graph"
)

// reliabilityEvaluator propagates per-signal reliability through the circuit
// in closed form, using one 2x2 Z matrix per vertex.  A vertex's Z matrix
// combines the Kronecker product of its input matrices with the ideal and
// probabilistic transfer matrices of its function; its reliability is the
// trace.  The circuit reliability is the weighted geometric mean over the
// outputs.
type reliabilityEvaluator struct {
	domination
	opt *Optimizer
	// relNorm is the total output weight, normalising the geometric mean.
	relNorm float64
}

func (e *reliabilityEvaluator) Setup() error {
	outputs := e.opt.graph.Outputs(e.opt.order)
	//
	for _, handle := range outputs {
		weight, _ := e.opt.outputWeight(handle)
		e.relNorm += weight
	}
	//
	return nil
}

func (e *reliabilityEvaluator) Value(s Solution) [2]float64 {
	var (
		choice = e.opt.choice(s)
		g      = e.opt.graph
		z      = make([]*mat.Dense, len(g.Vertices))
	)
	//
	for _, handle := range e.opt.order {
		switch g.Vertices[handle].Kind {
		case graph.ConstantZero:
			z[handle] = mat.NewDense(2, 2, []float64{1, 0, 0, 0})
		case graph.ConstantOne:
			z[handle] = mat.NewDense(2, 2, []float64{0, 0, 0, 1})
		case graph.PrimaryInput:
			z[handle] = mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})
		case graph.Cell:
			z[handle] = e.cellMatrix(handle, choice, z)
		}
	}
	//
	rel := 1.0
	//
	for _, handle := range g.Outputs(e.opt.order) {
		var (
			r         = z[handle].At(0, 0) + z[handle].At(1, 1)
			weight, _ = e.opt.outputWeight(handle)
		)
		//
		rel *= math.Pow(r, weight/e.relNorm)
	}
	//
	return [2]float64{1 - rel, e.opt.gateRatio(s)}
}

// cellMatrix computes the Z matrix of one LUT cell under a given variant
// choice.  The ideal transfer matrix always reflects the exact function,
// whilst the probabilistic one reflects the substituted variant.
func (e *reliabilityEvaluator) cellMatrix(handle uint, choice graph.Choice,
	z []*mat.Dense) *mat.Dense {
	//
	var (
		g    = e.opt.graph
		fun  = g.Vertices[handle].Cell.Lut
		itm  = transferMatrix(e.opt.cat.TableOf(fun, 0))
		ptm  = transferMatrix(e.opt.cat.TableOf(fun, choice[handle]))
		bigI = mat.NewDense(1, 1, []float64{1})
	)
	// Source k indexes bit k of the truth table, hence later sources occupy
	// the more significant positions of the Kronecker product.
	for _, source := range g.Sources(handle) {
		next := &mat.Dense{}
		next.Kronecker(z[source], bigI)
		bigI = next
	}
	//
	var tmp, cell mat.Dense
	//
	tmp.Mul(bigI, ptm)
	cell.Mul(tmp.T(), itm)
	//
	return mat.DenseCopyOf(&cell)
}

// transferMatrix expands a truth table into its transfer matrix: one row per
// input combination, carrying probability one in the column of the output
// value.
func transferMatrix(table *bitset.BitSet) *mat.Dense {
	rows := table.Len()
	matrix := mat.NewDense(int(rows), 2, nil)
	//
	for t := uint(0); t < rows; t++ {
		if table.Test(t) {
			matrix.Set(int(t), 1, 1)
		} else {
			matrix.Set(int(t), 0, 1)
		}
	}
	//
	return matrix
}
