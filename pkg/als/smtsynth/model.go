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
package smtsynth

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/consensys/go-als/pkg/als/bitfun"
)

// Kind distinguishes the two supported gate libraries.
type Kind uint8

const (
	// AIG networks are built from two-input AND gates with optional input and
	// output inversions.
	AIG Kind = iota
	// MIG networks are built from three-input Majority gates with optional
	// input and output inversions.
	MIG
)

// String returns the conventional short name of this kind.
func (k Kind) String() string {
	if k == MIG {
		return "mig"
	}
	//
	return "aig"
}

// FanIn returns the gate fan-in for this kind of network.
func (k Kind) FanIn() uint {
	if k == MIG {
		return 3
	}
	//
	return 2
}

// Model is a synthesized gate network realizing a single-output Boolean
// function.  Nodes are indexed with the primary inputs first (node 0 being the
// constant zero) followed by gates in creation order.  Fan-in indices are
// always strictly less than the node they feed, hence the network is acyclic
// by construction.
type Model struct {
	// Kind of gate network (AIG or MIG).
	Kind Kind
	// FunSpec is the truth table actually realized by the network.  When a
	// non-zero output distance was allowed, this can differ from the requested
	// function, and downstream error evaluation must compare against it.
	FunSpec *bitset.BitSet
	// NumInputs is the number of primary input nodes, including the reserved
	// constant-zero node 0.
	NumInputs uint
	// NumGates is the number of internal gate nodes.
	NumGates uint
	// S holds, for every node, the indices of its fan-in nodes.  Rows for
	// primary inputs are self-referential placeholders.
	S [][]uint
	// P holds the fan-in polarities parallel to S (true means non-inverted).
	P [][]bool
	// Out is the index of the node selected as the network output.
	Out uint
	// OutP is the polarity of the output (true means non-inverted).
	OutP bool
}

// baseModel constructs the input-only skeleton shared by every synthesis
// result for a function over numVars variables.
func baseModel(kind Kind, numVars uint) Model {
	m := Model{Kind: kind, NumInputs: numVars + 1}
	//
	for i := uint(0); i <= numVars; i++ {
		row := make([]uint, kind.FanIn())
		pol := make([]bool, kind.FanIn())
		//
		for c := range row {
			row[c] = i
			pol[c] = true
		}
		//
		m.S = append(m.S, row)
		m.P = append(m.P, pol)
	}
	//
	return m
}

// Eval replays the gate network for a single truth-table row, returning the
// output value of the model.  This is primarily used by tests and by the
// catalogue to sanity check synthesis results.
func (m *Model) Eval(row uint) bool {
	values := make([]bool, len(m.S))
	// Primary inputs
	for i := uint(0); i < m.NumInputs; i++ {
		values[i] = bitfun.Value(i, row)
	}
	// Gates, in creation order
	for i := m.NumInputs; i < uint(len(m.S)); i++ {
		ins := make([]bool, len(m.S[i]))
		for c := range m.S[i] {
			ins[c] = values[m.S[i][c]] == m.P[i][c]
		}
		//
		if m.Kind == MIG {
			values[i] = (ins[0] && ins[1]) || (ins[0] && ins[2]) || (ins[1] && ins[2])
		} else {
			values[i] = ins[0] && ins[1]
		}
	}
	//
	return values[m.Out] == m.OutP
}

// Table evaluates the model over all rows, reconstructing its full truth
// table.
func (m *Model) Table(numVars uint) *bitset.BitSet {
	table := bitset.New(1 << numVars)
	//
	for t := uint(0); t < 1<<numVars; t++ {
		table.SetTo(t, m.Eval(t))
	}
	//
	return table
}
