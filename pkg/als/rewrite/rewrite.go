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

// Package rewrite materializes synthesized gate networks back into the
// netlist, replacing each LUT cell with primitive AND and NOT cells.  The
// result no longer depends on LUT primitives and can be handed to downstream
// technology mapping.
package rewrite

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// All replaces every named LUT cell of a module with the gate network of its
// model.  Models are keyed by cell name; cells without a model are left
// untouched.
func All(module *netlist.Module, models map[string]smtsynth.Model) error {
	// Snapshot the cell list up front, since replacement mutates it.
	var names []string
	//
	for _, cell := range module.Cells {
		if _, ok := models[cell.Name]; ok {
			names = append(names, cell.Name)
		}
	}
	//
	for _, name := range names {
		if err := ReplaceLut(module, name, models[name]); err != nil {
			return err
		}
	}
	//
	return nil
}

// ReplaceLut replaces a single LUT cell with the gate network of a model
// realizing (an approximation of) its function.  The cell is removed, and the
// network wired between the cell's original input and output signals.
func ReplaceLut(module *netlist.Module, cellName string, model smtsynth.Model) error {
	cell := module.CellByName(cellName)
	//
	if cell == nil {
		return errors.Errorf("no cell named %q", cellName)
	} else if model.Kind != smtsynth.AIG {
		return errors.Errorf("cell %q: only AND-inverter models can be materialized", cellName)
	}
	//
	var (
		inputs []netlist.SigBit
		output netlist.SigBit = netlist.Const0
		driven bool
	)
	//
	for _, conn := range cell.Connections {
		if conn.Input {
			inputs = append(inputs, conn.Bits...)
		} else if !driven && len(conn.Bits) > 0 {
			output = conn.Bits[0]
			driven = true
		}
	}
	//
	if !driven {
		return errors.Errorf("cell %q drives no output", cellName)
	} else if uint(len(inputs)) != model.NumInputs-1 {
		return errors.Errorf("cell %q has %d inputs but the model expects %d",
			cellName, len(inputs), model.NumInputs-1)
	}
	//
	r := &rewriter{module: module, prefix: cellName}
	// Node signals: constant zero, then the cell inputs, then gates.
	sigs := make([]netlist.SigBit, len(model.S))
	sigs[0] = netlist.Const0
	copy(sigs[1:model.NumInputs], inputs)
	//
	for i := model.NumInputs; i < uint(len(model.S)); i++ {
		var (
			a = r.polarized(sigs[model.S[i][0]], model.P[i][0])
			b = r.polarized(sigs[model.S[i][1]], model.P[i][1])
		)
		// The output node can drive the cell's net directly, unless the
		// output polarity still needs an inverter.
		if i == model.Out && model.OutP {
			r.addAnd(a, b, output)
			sigs[i] = output
		} else {
			sigs[i] = r.addAnd(a, b, netlist.Const0)
		}
	}
	//
	switch {
	case !model.OutP:
		r.addNot(sigs[model.Out], output)
	case model.Out < model.NumInputs:
		// Zero-gate network: buffer the source onto the output net.
		r.addNot(r.polarized(sigs[model.Out], false), output)
	}
	//
	module.RemoveCell(cellName)
	//
	return nil
}

// rewriter allocates uniquely named wires and cells within one replacement.
type rewriter struct {
	module *netlist.Module
	prefix string
	count  uint
}

// polarized returns sig itself for a positive polarity, and an inverted copy
// otherwise.
func (r *rewriter) polarized(sig netlist.SigBit, polarity bool) netlist.SigBit {
	if polarity {
		return sig
	}
	//
	return r.addNot(sig, netlist.Const0)
}

// addAnd creates an AND cell over two signals.  When target is a real net the
// cell drives it directly; otherwise a fresh wire is allocated.
func (r *rewriter) addAnd(a, b, target netlist.SigBit) netlist.SigBit {
	y := r.target(target)
	//
	r.module.AddCell(&netlist.Cell{
		Name: r.fresh("and"),
		Type: netlist.CellAnd,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a}},
			{Name: "B", Input: true, Bits: []netlist.SigBit{b}},
			{Name: "Y", Bits: []netlist.SigBit{y}},
		},
	})
	//
	return y
}

func (r *rewriter) addNot(a, target netlist.SigBit) netlist.SigBit {
	y := r.target(target)
	//
	r.module.AddCell(&netlist.Cell{
		Name: r.fresh("not"),
		Type: netlist.CellNot,
		Connections: []netlist.Connection{
			{Name: "A", Input: true, Bits: []netlist.SigBit{a}},
			{Name: "Y", Bits: []netlist.SigBit{y}},
		},
	})
	//
	return y
}

func (r *rewriter) target(target netlist.SigBit) netlist.SigBit {
	if target.IsNet() {
		return target
	}
	//
	return r.module.AddWire(r.fresh("y"), 1).Bits[0]
}

func (r *rewriter) fresh(stem string) string {
	r.count++
	return fmt.Sprintf("%s$%s%d", r.prefix, stem, r.count)
}
