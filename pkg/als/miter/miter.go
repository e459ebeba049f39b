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

// Package miter certifies an approximate design against its golden version.
// Both netlists are compiled into a single combinational circuit whose inputs
// are shared by name; the circuit triggers whenever some output bus deviates
// numerically by more than a given threshold.  Unsatisfiability of the
// trigger then proves the bound holds over the whole input space.
package miter

import (
	"fmt"

	"github.com/irifrance/gini"
	"github.com/irifrance/gini/logic"
	"github.com/irifrance/gini/z"
	"github.com/pkg/errors"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/netlist"
)

// Report is the outcome of a miter check.
type Report struct {
	// Safe is true when no input drives any output past the threshold.
	Safe bool
	// Inputs holds a violating input assignment, keyed by input bit name.
	// Only populated when Safe is false.
	Inputs map[string]bool
}

// Check proves (or refutes) that every output bus of approx stays within
// threshold of the same-named bus of golden, for all inputs.
func Check(golden, approx *netlist.Module, threshold uint64) (Report, error) {
	var (
		circ     = logic.NewC()
		inputs   = make(map[string]z.Lit)
		triggers []z.Lit
	)
	//
	gold, err := compile(circ, golden, inputs)
	if err != nil {
		return Report{}, errors.Wrap(err, "golden design")
	}
	//
	apx, err := compile(circ, approx, inputs)
	if err != nil {
		return Report{}, errors.Wrap(err, "approximate design")
	}
	//
	for name, gbits := range gold {
		abits, ok := apx[name]
		//
		if !ok {
			return Report{}, errors.Errorf("output %q missing from approximate design", name)
		} else if len(abits) != len(gbits) {
			return Report{}, errors.Errorf("output %q differs in width (%d vs %d)",
				name, len(gbits), len(abits))
		}
		//
		triggers = append(triggers, exceeds(circ, gbits, abits, threshold))
	}
	//
	trigger := circ.Ors(triggers...)
	// Hand the circuit to the solver.
	slv := gini.New()
	circ.ToCnfFrom(slv, trigger)
	slv.Add(trigger)
	slv.Add(z.LitNull)
	//
	if slv.Solve() != 1 {
		return Report{Safe: true}, nil
	}
	// Extract the violating assignment.
	witness := make(map[string]bool)
	for name, lit := range inputs {
		witness[name] = slv.Value(lit)
	}
	//
	return Report{Safe: false, Inputs: witness}, nil
}

// compile lowers a module into the shared circuit, returning the literals of
// each output wire.  Input bits are unified across modules through the inputs
// map, keyed by wire bit name.
func compile(circ *logic.C, module *netlist.Module,
	inputs map[string]z.Lit) (map[string][]z.Lit, error) {
	//
	c := &compiler{circ: circ, module: module, inputs: inputs,
		driver: make(map[netlist.SigBit]*netlist.Cell),
		cells:  make(map[string]z.Lit),
	}
	//
	for _, cell := range module.Cells {
		for _, conn := range cell.Connections {
			if conn.Input {
				continue
			}
			//
			for _, bit := range conn.Bits {
				c.driver[bit] = cell
			}
		}
	}
	//
	outputs := make(map[string][]z.Lit)
	//
	for _, wire := range module.Wires {
		if !wire.PortOutput {
			continue
		}
		//
		for _, bit := range wire.Bits {
			lit, err := c.litOf(bit)
			if err != nil {
				return nil, err
			}
			//
			outputs[wire.Name] = append(outputs[wire.Name], lit)
		}
	}
	//
	return outputs, nil
}

type compiler struct {
	circ   *logic.C
	module *netlist.Module
	inputs map[string]z.Lit
	driver map[netlist.SigBit]*netlist.Cell
	cells  map[string]z.Lit
}

// litOf resolves a signal bit into its literal, lowering its cone of logic on
// first encounter.
func (c *compiler) litOf(bit netlist.SigBit) (z.Lit, error) {
	switch bit {
	case netlist.Const0:
		return c.circ.F, nil
	case netlist.Const1:
		return c.circ.T, nil
	}
	//
	if cell, ok := c.driver[bit]; ok {
		return c.cellLit(cell)
	}
	// Undriven, hence a shared primary input.
	wire, offset := c.module.WireOf(bit)
	if wire == nil {
		return z.LitNull, errors.Errorf("net %d not allocated to any wire", bit)
	}
	//
	name := bitName(wire, offset)
	//
	if lit, ok := c.inputs[name]; ok {
		return lit, nil
	}
	//
	lit := c.circ.Lit()
	c.inputs[name] = lit
	//
	return lit, nil
}

// cellLit lowers one cell, memoized by cell name.
func (c *compiler) cellLit(cell *netlist.Cell) (z.Lit, error) {
	if lit, ok := c.cells[cell.Name]; ok {
		return lit, nil
	}
	//
	var ins []z.Lit
	//
	for _, conn := range cell.Connections {
		if !conn.Input {
			continue
		}
		//
		for _, bit := range conn.Bits {
			lit, err := c.litOf(bit)
			if err != nil {
				return z.LitNull, err
			}
			//
			ins = append(ins, lit)
		}
	}
	//
	var lit z.Lit
	//
	switch cell.Type {
	case netlist.CellAnd:
		lit = c.circ.Ands(ins...)
	case netlist.CellNot:
		if len(ins) != 1 {
			return z.LitNull, errors.Errorf("cell %q: inverter with %d inputs", cell.Name, len(ins))
		}
		//
		lit = ins[0].Not()
	case netlist.CellLut:
		table, err := bitfun.FromString(cell.Lut)
		if err != nil {
			return z.LitNull, errors.Wrapf(err, "cell %q", cell.Name)
		}
		//
		lit = lutLit(c.circ, ins, table, 0)
	default:
		return z.LitNull, errors.Errorf("cell %q: unsupported type %q", cell.Name, cell.Type)
	}
	//
	c.cells[cell.Name] = lit
	//
	return lit, nil
}

// lutLit lowers a truth table by Shannon expansion over its variables, most
// significant first.  Base is the row offset of the current cofactor.
func lutLit(circ *logic.C, ins []z.Lit, table interface{ Test(uint) bool }, base uint) z.Lit {
	if len(ins) == 0 {
		if table.Test(base) {
			return circ.T
		}
		//
		return circ.F
	}
	//
	var (
		k    = len(ins) - 1
		low  = lutLit(circ, ins[:k], table, base)
		high = lutLit(circ, ins[:k], table, base|1<<uint(k))
	)
	//
	return circ.Choice(ins[k], high, low)
}

// exceeds builds a literal true exactly when |g - a| > threshold, for two
// equal-width buses read least significant bit first.
func exceeds(circ *logic.C, g, a []z.Lit, threshold uint64) z.Lit {
	var (
		d1, borrow1 = subtract(circ, g, a)
		d2, _       = subtract(circ, a, g)
		diff        = make([]z.Lit, len(g))
	)
	// borrow1 set means g < a, in which case a-g is the magnitude.
	for i := range diff {
		diff[i] = circ.Choice(borrow1, d2[i], d1[i])
	}
	//
	return greaterThanConst(circ, diff, threshold)
}

// subtract builds a ripple-borrow subtractor, returning the difference bits
// and the final borrow.
func subtract(circ *logic.C, a, b []z.Lit) ([]z.Lit, z.Lit) {
	var (
		diff   = make([]z.Lit, len(a))
		borrow = circ.F
	)
	//
	for i := range a {
		diff[i] = circ.Xor(circ.Xor(a[i], b[i]), borrow)
		borrow = circ.Or(
			circ.And(a[i].Not(), b[i]),
			circ.And(borrow, circ.Xor(a[i], b[i]).Not()))
	}
	//
	return diff, borrow
}

// greaterThanConst compares a bus against a constant, most significant bit
// first.
func greaterThanConst(circ *logic.C, bus []z.Lit, k uint64) z.Lit {
	var (
		gt = circ.F
		eq = circ.T
	)
	//
	for i := len(bus) - 1; i >= 0; i-- {
		if k&(1<<uint(i)) == 0 {
			gt = circ.Or(gt, circ.And(eq, bus[i]))
			eq = circ.And(eq, bus[i].Not())
		} else {
			eq = circ.And(eq, bus[i])
		}
	}
	// Constant bits above the bus width can only make the constant larger.
	if k>>uint(len(bus)) != 0 {
		return circ.F
	}
	//
	return gt
}

func bitName(wire *netlist.Wire, offset uint) string {
	if len(wire.Bits) > 1 {
		return fmt.Sprintf("%s[%d]", wire.Name, offset)
	}
	//
	return wire.Name
}
