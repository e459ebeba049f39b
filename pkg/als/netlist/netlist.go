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
package netlist

import (
	"fmt"
	"slices"
)

// SigBit identifies a single bit of a signal.  Non-negative values are net
// identifiers; two references to the same physical wire bit always carry the
// same net identifier, giving signal-identity canonicalization for free.
type SigBit int

const (
	// Const0 is the constant-zero signal bit.
	Const0 SigBit = -1
	// Const1 is the constant-one signal bit.
	Const1 SigBit = -2
)

// IsNet reports whether this bit refers to a wire bit (rather than to a
// constant).
func (s SigBit) IsNet() bool {
	return s >= 0
}

// CellAnd is the cell type of a primitive two-input AND gate.
const CellAnd = "$_AND_"

// CellNot is the cell type of a primitive inverter.
const CellNot = "$_NOT_"

// CellLut is the cell type of a lookup-table cell.
const CellLut = "$lut"

// Connection is a named port of a cell together with the signal bits bound to
// it.  The order of bits within a connection is significant: for LUT cells,
// bit k of the input connection is variable k of the truth table.
type Connection struct {
	// Name of the port (e.g. "A", "Y").
	Name string
	// Input is true when the cell reads this connection.
	Input bool
	// Bits bound to the port, least significant first.
	Bits []SigBit
}

// Cell is a netlist cell.  LUT cells carry their truth table as a parameter;
// primitive gate cells do not.
type Cell struct {
	// Name uniquely identifies the cell within its module.
	Name string
	// Type of the cell (CellLut, CellAnd, CellNot).
	Type string
	// Lut is the truth-table parameter, written most-significant row first.
	// Empty for non-LUT cells.
	Lut string
	// Connections of the cell, in a fixed deterministic order.
	Connections []Connection
}

// IsLut reports whether this cell carries a lookup-table function parameter.
func (c *Cell) IsLut() bool {
	return c.Type == CellLut
}

// Wire is a named signal bus.  Primary inputs and outputs of the module are
// wires flagged as ports.
type Wire struct {
	// Name of the wire.
	Name string
	// Bits allocated to the wire, least significant first.
	Bits []SigBit
	// PortInput marks a module input.
	PortInput bool
	// PortOutput marks a module output.
	PortOutput bool
}

// Module is a combinational netlist: a set of named wires and the cells
// connecting them.  Sequential elements are not representable.
type Module struct {
	// Name of the module.
	Name string
	// Wires of the module, in creation order.
	Wires []*Wire
	// Cells of the module, in creation order.
	Cells []*Cell
	// NextNet is the next unallocated net identifier.
	NextNet int
}

// NewModule constructs an empty module with a given name.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddWire creates a new wire of a given width, allocating fresh nets for each
// of its bits.
func (m *Module) AddWire(name string, width uint) *Wire {
	w := &Wire{Name: name}
	//
	for i := uint(0); i < width; i++ {
		w.Bits = append(w.Bits, SigBit(m.NextNet))
		m.NextNet++
	}
	//
	m.Wires = append(m.Wires, w)
	//
	return w
}

// AddCell appends a cell to the module.
func (m *Module) AddCell(cell *Cell) *Cell {
	m.Cells = append(m.Cells, cell)
	return cell
}

// RemoveCell deletes a cell by name, returning true when it was present.
func (m *Module) RemoveCell(name string) bool {
	for i, c := range m.Cells {
		if c.Name == name {
			m.Cells = slices.Delete(m.Cells, i, i+1)
			return true
		}
	}
	//
	return false
}

// CellByName looks up a cell by name.
func (m *Module) CellByName(name string) *Cell {
	for _, c := range m.Cells {
		if c.Name == name {
			return c
		}
	}
	//
	return nil
}

// WireByName looks up a wire by name.
func (m *Module) WireByName(name string) *Wire {
	for _, w := range m.Wires {
		if w.Name == name {
			return w
		}
	}
	//
	return nil
}

// WireOf returns the wire owning a given net, along with the bit offset of
// the net within it.
func (m *Module) WireOf(bit SigBit) (*Wire, uint) {
	for _, w := range m.Wires {
		for i, b := range w.Bits {
			if b == bit {
				return w, uint(i)
			}
		}
	}
	//
	return nil, 0
}

// Clone produces a deep copy of this module, sharing nothing with the
// original.
func (m *Module) Clone() *Module {
	clone := &Module{Name: m.Name, NextNet: m.NextNet}
	//
	for _, w := range m.Wires {
		clone.Wires = append(clone.Wires, &Wire{
			Name:       w.Name,
			Bits:       slices.Clone(w.Bits),
			PortInput:  w.PortInput,
			PortOutput: w.PortOutput,
		})
	}
	//
	for _, c := range m.Cells {
		cell := &Cell{Name: c.Name, Type: c.Type, Lut: c.Lut}
		//
		for _, conn := range c.Connections {
			cell.Connections = append(cell.Connections, Connection{
				Name:  conn.Name,
				Input: conn.Input,
				Bits:  slices.Clone(conn.Bits),
			})
		}
		//
		clone.Cells = append(clone.Cells, cell)
	}
	//
	return clone
}

// Validate performs basic well-formedness checks: unique cell names, LUT
// parameters of power-of-two length matching the input width, and connection
// bits referring to allocated nets.
func (m *Module) Validate() error {
	names := make(map[string]bool)
	//
	for _, c := range m.Cells {
		if names[c.Name] {
			return fmt.Errorf("duplicate cell name %q", c.Name)
		}
		//
		names[c.Name] = true
		//
		if c.IsLut() {
			width := uint(0)
			//
			for _, conn := range c.Connections {
				if conn.Input {
					width += uint(len(conn.Bits))
				}
			}
			//
			if uint(len(c.Lut)) != 1<<width {
				return fmt.Errorf("cell %q: LUT parameter has %d rows for %d inputs",
					c.Name, len(c.Lut), width)
			}
		}
		//
		for _, conn := range c.Connections {
			for _, bit := range conn.Bits {
				if bit.IsNet() && int(bit) >= m.NextNet {
					return fmt.Errorf("cell %q: unallocated net %d", c.Name, bit)
				}
			}
		}
	}
	//
	return nil
}
