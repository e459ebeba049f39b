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
package graph

import (
	"github.com/bits-and-blooms/bitset"
)

// LutCatalogue provides the truth table realised by a given variant of a LUT
// function.  Variant zero is always the exact function.
type LutCatalogue interface {
	// TableOf returns the truth table of variant of fun, or nil when no
	// such variant exists.
	TableOf(fun string, variant uint) *bitset.BitSet
}

// Choice maps cell vertex handles onto catalogue variant indices.  Handles
// absent from the map take variant zero, i.e. the exact function.
type Choice map[uint]uint

// Evaluate performs a forward pass over the circuit, substituting for every
// LUT the catalogue variant chosen for it.  Bit i of input feeds the
// primary-input vertex with InputIndex i; the result holds one bit per output
// vertex, in topological order.
func (g *Graph) Evaluate(order []uint, cat LutCatalogue, choice Choice,
	input *bitset.BitSet) *bitset.BitSet {
	//
	values := make([]bool, len(g.Vertices))
	outputs := bitset.New(1)
	outBit := uint(0)
	//
	for _, handle := range order {
		vertex := &g.Vertices[handle]
		//
		switch vertex.Kind {
		case ConstantZero:
			values[handle] = false
		case ConstantOne:
			values[handle] = true
		case PrimaryInput:
			values[handle] = input.Test(vertex.InputIndex)
		case Cell:
			values[handle] = g.evalCell(handle, cat, choice, values)
		}
		//
		if len(vertex.Out) == 0 && vertex.Kind == Cell {
			outputs.SetTo(outBit, values[handle])
			outBit++
		}
	}
	//
	return outputs
}

// evalCell computes the value of a single LUT cell by indexing its (possibly
// substituted) truth table with the values of its sources.  Source k supplies
// bit k of the row index.
func (g *Graph) evalCell(handle uint, cat LutCatalogue, choice Choice,
	values []bool) bool {
	//
	row := uint(0)
	//
	for k, source := range g.Sources(handle) {
		if values[source] {
			row |= 1 << k
		}
	}
	//
	table := cat.TableOf(g.Vertices[handle].Cell.Lut, choice[handle])
	//
	return table.Test(row)
}
