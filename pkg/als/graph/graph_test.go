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
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/netlist"
)

// exactTables serves every LUT parameter as its own (exact) truth table,
// standing in for a real catalogue.
type exactTables struct{}

func (exactTables) TableOf(fun string, variant uint) *bitset.BitSet {
	table, err := bitfun.FromString(fun)
	if err != nil {
		panic(err)
	}
	//
	return table
}

// lut appends a LUT cell reading the given bits, driving a fresh wire whose
// single bit is returned.
func lut(m *netlist.Module, name, fun string, ins ...netlist.SigBit) netlist.SigBit {
	y := m.AddWire(name+"_y", 1).Bits[0]
	//
	m.AddCell(&netlist.Cell{
		Name: name,
		Type: netlist.CellLut,
		Lut:  fun,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: ins},
			{Name: "Y", Bits: []netlist.SigBit{y}},
		},
	})
	//
	return y
}

func inputs(m *netlist.Module, names ...string) []netlist.SigBit {
	var bits []netlist.SigBit
	//
	for _, name := range names {
		w := m.AddWire(name, 1)
		w.PortInput = true
		bits = append(bits, w.Bits[0])
	}
	//
	return bits
}

func TestBuild_SingleCell(t *testing.T) {
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b")
	lut(m, "g0", "1000", ins...)
	//
	g, err := Build(m)
	require.NoError(t, err)
	//
	assert.Equal(t, uint(2), g.NumInputs)
	assert.Len(t, g.Vertices, 3)
	assert.Len(t, g.Edges, 2)
	// Cell vertices come first, then lazily created inputs.
	assert.Equal(t, Cell, g.Vertices[0].Kind)
	assert.Equal(t, PrimaryInput, g.Vertices[1].Kind)
	assert.Equal(t, "a", g.Vertices[1].Name)
	assert.Equal(t, uint(0), g.Vertices[1].InputIndex)
	assert.Equal(t, "b", g.Vertices[2].Name)
	//
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 0}, order)
	assert.Equal(t, []uint{0}, g.Outputs(order))
}

func TestSources_CachedOrdering(t *testing.T) {
	// Inputs listed out of wire order still come back in connection bit
	// order, and repeated calls serve the same cached slice.
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b", "c")
	lut(m, "g0", "10010110", ins[2], ins[0], ins[1])
	//
	g, err := Build(m)
	require.NoError(t, err)
	// Vertex 1 is the lazily created input for the first listed bit, "c".
	assert.Equal(t, "c", g.Vertices[1].Name)
	assert.Equal(t, []uint{1, 2, 3}, g.Sources(0))
	//
	first := g.Sources(0)
	assert.Same(t, &first[0], &g.Sources(0)[0])
}

func TestBuild_SharedInput(t *testing.T) {
	// Two cells reading the same wire share one input vertex.
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b")
	lut(m, "g0", "1000", ins...)
	lut(m, "g1", "1110", ins...)
	//
	g, err := Build(m)
	require.NoError(t, err)
	//
	assert.Equal(t, uint(2), g.NumInputs)
	assert.Len(t, g.Vertices, 4)
}

func TestBuild_Constants(t *testing.T) {
	m := netlist.NewModule("unit")
	ins := inputs(m, "a")
	lut(m, "g0", "1000", ins[0], netlist.Const1)
	lut(m, "g1", "1000", netlist.Const1, netlist.Const0)
	//
	g, err := Build(m)
	require.NoError(t, err)
	// One shared vertex per constant.
	ones := 0
	//
	for _, v := range g.Vertices {
		if v.Kind == ConstantOne {
			ones++
		}
	}
	//
	assert.Equal(t, 1, ones)
}

func TestBuild_MultiplyDriven(t *testing.T) {
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b")
	y := lut(m, "g0", "1000", ins...)
	// Second driver of g0's net.
	m.AddCell(&netlist.Cell{
		Name: "g1",
		Type: netlist.CellLut,
		Lut:  "01",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{ins[0]}},
			{Name: "Y", Bits: []netlist.SigBit{y}},
		},
	})
	//
	_, err := Build(m)
	assert.Error(t, err)
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	m := netlist.NewModule("unit")
	a := m.AddWire("a", 1).Bits[0]
	b := m.AddWire("b", 1).Bits[0]
	// Two inverters feeding each other.
	m.AddCell(&netlist.Cell{
		Name: "g0", Type: netlist.CellLut, Lut: "01",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a}},
			{Name: "Y", Bits: []netlist.SigBit{b}},
		},
	})
	m.AddCell(&netlist.Cell{
		Name: "g1", Type: netlist.CellLut, Lut: "01",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{b}},
			{Name: "Y", Bits: []netlist.SigBit{a}},
		},
	})
	//
	g, err := Build(m)
	require.NoError(t, err)
	//
	_, err = g.TopologicalOrder()
	assert.Error(t, err)
}

func TestEvaluate_SingleLut(t *testing.T) {
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b")
	lut(m, "g0", "1000", ins...)
	//
	g, err := Build(m)
	require.NoError(t, err)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	// Input bit zero is variable zero of the truth table.
	for row := uint(0); row < 4; row++ {
		input := bitset.New(2)
		input.SetTo(0, row&1 != 0)
		input.SetTo(1, row&2 != 0)
		//
		outputs := g.Evaluate(order, exactTables{}, nil, input)
		assert.Equal(t, row == 3, outputs.Test(0), "row %d", row)
	}
}

func TestEvaluate_Chain(t *testing.T) {
	// g1 inverts the conjunction computed by g0, giving nand overall.
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b")
	y0 := lut(m, "g0", "1000", ins...)
	lut(m, "g1", "01", y0)
	//
	g, err := Build(m)
	require.NoError(t, err)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	//
	outputs := g.Outputs(order)
	require.Len(t, outputs, 1)
	assert.Equal(t, "g1", g.Vertices[outputs[0]].Name)
	//
	for row := uint(0); row < 4; row++ {
		input := bitset.New(2)
		input.SetTo(0, row&1 != 0)
		input.SetTo(1, row&2 != 0)
		//
		result := g.Evaluate(order, exactTables{}, nil, input)
		assert.Equal(t, row != 3, result.Test(0), "row %d", row)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	m := netlist.NewModule("unit")
	ins := inputs(m, "a", "b", "c")
	y0 := lut(m, "g0", "0110", ins[0], ins[1])
	lut(m, "g1", "10010110", y0, ins[1], ins[2])
	//
	g, err := Build(m)
	require.NoError(t, err)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	//
	input := bitset.New(3)
	input.Set(0)
	input.Set(2)
	//
	first := g.Evaluate(order, exactTables{}, nil, input)
	//
	for range 10 {
		assert.True(t, first.Equal(g.Evaluate(order, exactTables{}, nil, input)))
	}
}
