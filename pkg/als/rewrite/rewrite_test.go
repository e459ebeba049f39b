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
package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/miter"
	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// lutModule builds a module containing a single LUT cell over fresh inputs,
// one per truth table variable.
func lutModule(fun string) *netlist.Module {
	var (
		m       = netlist.NewModule("unit")
		numVars = bitfun.CeilLog2(uint(len(fun)))
		bits    []netlist.SigBit
	)
	//
	for i := uint(0); i < numVars; i++ {
		w := m.AddWire(inputName(i), 1)
		w.PortInput = true
		bits = append(bits, w.Bits[0])
	}
	//
	y := m.AddWire("y", 1)
	y.PortOutput = true
	//
	m.AddCell(&netlist.Cell{
		Name: "g0",
		Type: netlist.CellLut,
		Lut:  fun,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: bits},
			{Name: "Y", Bits: []netlist.SigBit{y.Bits[0]}},
		},
	})
	//
	return m
}

func inputName(i uint) string {
	return string(rune('a' + i))
}

// synthesize produces an exact AND-inverter model for a function.
func synthesize(t *testing.T, fun string) smtsynth.Model {
	spec, err := bitfun.FromString(fun)
	require.NoError(t, err)
	//
	model, err := smtsynth.Synthesize(spec, 0, smtsynth.DefaultParams())
	require.NoError(t, err)
	//
	return model
}

// checkReplacement rewrites the single LUT of a module and verifies the
// result against the untouched original.
func checkReplacement(t *testing.T, fun string) *netlist.Module {
	var (
		golden  = lutModule(fun)
		rewired = lutModule(fun)
	)
	//
	require.NoError(t, ReplaceLut(rewired, "g0", synthesize(t, fun)))
	// Lut cell gone, only primitive gates left.
	assert.Nil(t, rewired.CellByName("g0"))
	//
	for _, cell := range rewired.Cells {
		assert.False(t, cell.IsLut(), "cell %q still a LUT", cell.Name)
	}
	//
	require.NoError(t, rewired.Validate())
	//
	report, err := miter.Check(golden, rewired, 0)
	require.NoError(t, err)
	assert.True(t, report.Safe, "rewritten %q not equivalent", fun)
	//
	return rewired
}

func TestReplaceLut_And(t *testing.T) {
	rewired := checkReplacement(t, "1000")
	// A conjunction needs exactly one primitive cell driving the output
	// net directly.
	require.Len(t, rewired.Cells, 1)
	assert.Equal(t, netlist.CellAnd, rewired.Cells[0].Type)
}

func TestReplaceLut_Xor(t *testing.T) {
	checkReplacement(t, "0110")
}

func TestReplaceLut_Nand(t *testing.T) {
	checkReplacement(t, "0111")
}

func TestReplaceLut_ThreeVarMajority(t *testing.T) {
	checkReplacement(t, "11101000")
}

func TestReplaceLut_Constants(t *testing.T) {
	checkReplacement(t, "0000")
	checkReplacement(t, "1111")
}

func TestReplaceLut_SingleVariable(t *testing.T) {
	// Pass-through and inverted single-input functions.
	checkReplacement(t, "10")
	checkReplacement(t, "01")
	// Functions collapsing onto one of two variables.
	checkReplacement(t, "1010")
	checkReplacement(t, "0011")
}

func TestReplaceLut_Approximate(t *testing.T) {
	// An approximate model realizes its own achieved table, not the
	// requested one.  Rewriting must preserve the achieved function.
	spec, err := bitfun.FromString("0110")
	require.NoError(t, err)
	//
	model, err := smtsynth.Synthesize(spec, 1, smtsynth.DefaultParams())
	require.NoError(t, err)
	//
	var (
		golden  = lutModule(bitfun.ToString(model.FunSpec))
		rewired = lutModule("0110")
	)
	//
	require.NoError(t, ReplaceLut(rewired, "g0", model))
	//
	report, err := miter.Check(golden, rewired, 0)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}

func TestReplaceLut_RejectsMajorityModels(t *testing.T) {
	var (
		module  = lutModule("11101000")
		spec, _ = bitfun.FromString("11101000")
	)
	//
	model, err := smtsynth.Synthesize(spec, 0, smtsynth.Params{Kind: smtsynth.MIG, MaxTries: 20})
	require.NoError(t, err)
	//
	assert.Error(t, ReplaceLut(module, "g0", model))
}

func TestReplaceLut_UnknownCell(t *testing.T) {
	module := lutModule("1000")
	assert.Error(t, ReplaceLut(module, "xyz", synthesize(t, "1000")))
}

func TestReplaceLut_ArityMismatch(t *testing.T) {
	module := lutModule("1000")
	assert.Error(t, ReplaceLut(module, "g0", synthesize(t, "10001000")))
}

func TestAll(t *testing.T) {
	m := netlist.NewModule("unit")
	//
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	//
	s := m.AddWire("s", 1)
	s.PortOutput = true
	c := m.AddWire("c", 1)
	c.PortOutput = true
	//
	for name, fun := range map[string]string{"s": "0110", "c": "1000"} {
		m.AddCell(&netlist.Cell{
			Name: "g_" + name,
			Type: netlist.CellLut,
			Lut:  fun,
			Connections: []netlist.Connection{
				{Name: "A", Input: true, Bits: []netlist.SigBit{a.Bits[0], b.Bits[0]}},
				{Name: "Y", Bits: []netlist.SigBit{m.WireByName(name).Bits[0]}},
			},
		})
	}
	//
	golden := m.Clone()
	// Only the sum is rewritten; the carry keeps its LUT.
	models := map[string]smtsynth.Model{"g_s": synthesize(t, "0110")}
	require.NoError(t, All(m, models))
	//
	assert.Nil(t, m.CellByName("g_s"))
	require.NotNil(t, m.CellByName("g_c"))
	assert.True(t, m.CellByName("g_c").IsLut())
	//
	report, err := miter.Check(golden, m, 0)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}
