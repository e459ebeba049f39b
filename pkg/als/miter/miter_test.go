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
package miter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-als/pkg/als/netlist"
)

// lutModule builds a module with one output LUT per given function, all
// reading the same two primary inputs.
func lutModule(funs map[string]string) *netlist.Module {
	m := netlist.NewModule("unit")
	//
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	//
	for name, fun := range funs {
		y := m.AddWire(name, 1)
		y.PortOutput = true
		//
		m.AddCell(&netlist.Cell{
			Name: "g_" + name,
			Type: netlist.CellLut,
			Lut:  fun,
			Connections: []netlist.Connection{
				{Name: "A", Input: true, Bits: []netlist.SigBit{a.Bits[0], b.Bits[0]}},
				{Name: "Y", Bits: []netlist.SigBit{y.Bits[0]}},
			},
		})
	}
	//
	return m
}

func TestCheck_Identical(t *testing.T) {
	golden := lutModule(map[string]string{"y": "1000"})
	approx := lutModule(map[string]string{"y": "1000"})
	//
	report, err := Check(golden, approx, 0)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}

func TestCheck_Deviation(t *testing.T) {
	golden := lutModule(map[string]string{"y": "1000"})
	approx := lutModule(map[string]string{"y": "1110"})
	// And differs from or on two rows, each by one.
	report, err := Check(golden, approx, 0)
	require.NoError(t, err)
	require.False(t, report.Safe)
	// The witness names both inputs.
	assert.Contains(t, report.Inputs, "a")
	assert.Contains(t, report.Inputs, "b")
	// A threshold of one absorbs a single-bit output.
	report, err = Check(golden, approx, 1)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}

func TestCheck_WitnessIsGenuine(t *testing.T) {
	golden := lutModule(map[string]string{"y": "1000"})
	approx := lutModule(map[string]string{"y": "1001"})
	// The designs only disagree on a=0, b=0.
	report, err := Check(golden, approx, 0)
	require.NoError(t, err)
	require.False(t, report.Safe)
	assert.False(t, report.Inputs["a"])
	assert.False(t, report.Inputs["b"])
}

func TestCheck_MultipleOutputs(t *testing.T) {
	// A half adder against one with a broken carry.
	golden := lutModule(map[string]string{"s": "0110", "c": "1000"})
	approx := lutModule(map[string]string{"s": "0110", "c": "0000"})
	//
	report, err := Check(golden, approx, 0)
	require.NoError(t, err)
	assert.False(t, report.Safe)
	//
	report, err = Check(golden, approx, 1)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}

func TestCheck_PrimitiveGates(t *testing.T) {
	golden := lutModule(map[string]string{"y": "0111"})
	// Nand built from primitive cells.
	approx := netlist.NewModule("unit")
	a := approx.AddWire("a", 1)
	a.PortInput = true
	b := approx.AddWire("b", 1)
	b.PortInput = true
	n := approx.AddWire("n", 1)
	y := approx.AddWire("y", 1)
	y.PortOutput = true
	//
	approx.AddCell(&netlist.Cell{
		Name: "and0", Type: netlist.CellAnd,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a.Bits[0]}},
			{Name: "B", Input: true, Bits: []netlist.SigBit{b.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{n.Bits[0]}},
		},
	})
	approx.AddCell(&netlist.Cell{
		Name: "not0", Type: netlist.CellNot,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{n.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{y.Bits[0]}},
		},
	})
	//
	report, err := Check(golden, approx, 0)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}

func TestCheck_MissingOutput(t *testing.T) {
	golden := lutModule(map[string]string{"y": "1000"})
	approx := lutModule(map[string]string{"z": "1000"})
	//
	_, err := Check(golden, approx, 0)
	assert.Error(t, err)
}

func TestCheck_WideBus(t *testing.T) {
	// A two bit bus whose value the approximation underestimates by two.
	golden := netlist.NewModule("unit")
	a := golden.AddWire("a", 1)
	a.PortInput = true
	out := golden.AddWire("y", 2)
	out.PortOutput = true
	// y = {a, a}, i.e. 0 or 3.
	golden.AddCell(&netlist.Cell{
		Name: "g0", Type: netlist.CellLut, Lut: "10",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{out.Bits[0]}},
		},
	})
	golden.AddCell(&netlist.Cell{
		Name: "g1", Type: netlist.CellLut, Lut: "10",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{out.Bits[1]}},
		},
	})
	// approx: y = {0, a}, i.e. 0 or 1.
	approx := netlist.NewModule("unit")
	a2 := approx.AddWire("a", 1)
	a2.PortInput = true
	out2 := approx.AddWire("y", 2)
	out2.PortOutput = true
	//
	approx.AddCell(&netlist.Cell{
		Name: "g0", Type: netlist.CellLut, Lut: "10",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a2.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{out2.Bits[0]}},
		},
	})
	approx.AddCell(&netlist.Cell{
		Name: "g1", Type: netlist.CellLut, Lut: "00",
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a2.Bits[0]}},
			{Name: "Y", Bits: []netlist.SigBit{out2.Bits[1]}},
		},
	})
	//
	report, err := Check(golden, approx, 1)
	require.NoError(t, err)
	assert.False(t, report.Safe)
	//
	report, err = Check(golden, approx, 2)
	require.NoError(t, err)
	assert.True(t, report.Safe)
}
