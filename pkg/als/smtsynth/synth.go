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
	"errors"

	"github.com/bits-and-blooms/bitset"
	"github.com/irifrance/gini"
	"github.com/irifrance/gini/z"
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-als/pkg/als/bitfun"
)

// ErrInvalidSpec indicates a malformed function specification (empty, or of a
// length which is not a power of two).
var ErrInvalidSpec = errors.New("function specification is invalid")

// ErrSynthesisExhausted indicates the growing-circuit search for an
// approximate (distance > 0) target hit its gate budget without reaching
// satisfiability.  Callers must treat this as "no candidate at this distance"
// rather than as a usable model.
var ErrSynthesisExhausted = errors.New("synthesis attempt budget exhausted")

// Params configures a synthesis run.
type Params struct {
	// Kind of gate network to synthesize.
	Kind Kind
	// MaxTries bounds the number of gates tried for approximate requests.
	// Exact (distance zero) synthesis is unbounded, since every Boolean
	// function has a finite exact realization.
	MaxTries uint
}

// DefaultParams returns the synthesis defaults (AIG networks, at most 20
// gates tried for approximate targets).
func DefaultParams() Params {
	return Params{Kind: AIG, MaxTries: 20}
}

// Synthesize determines a minimum-gate network realizing a function within
// the given output distance (number of truth-table rows allowed to differ
// from funSpec).  The search grows the candidate network one gate at a time,
// re-checking satisfiability of an incremental SAT encoding at each size, and
// therefore returns the first (hence smallest) realizable network.
func Synthesize(funSpec *bitset.BitSet, distance uint, params Params) (Model, error) {
	if funSpec == nil || funSpec.Len() == 0 || !bitfun.IsPowerOfTwo(funSpec.Len()) {
		return Model{}, ErrInvalidSpec
	}
	//
	numVars := bitfun.CeilLog2(funSpec.Len())
	model := baseModel(params.Kind, numVars)
	// Many LUT functions degenerate to a single input under approximation, so
	// check every input column (under both polarities) before any solver work.
	for i := uint(0); i <= numVars; i++ {
		for _, polarity := range []bool{true, false} {
			column := bitfun.Column(i, numVars, polarity)
			if bitfun.HammingDistance(funSpec, column) <= distance {
				model.NumGates = 0
				model.Out = i
				model.OutP = polarity
				model.FunSpec = column
				//
				return model, nil
			}
		}
	}
	// Otherwise, run the growing-circuit search.
	syn := newSynthesizer(params.Kind, funSpec, distance)
	tries := uint(0)
	//
	for !syn.solve() {
		if distance > 0 && tries >= params.MaxTries {
			return Model{}, ErrSynthesisExhausted
		}
		//
		syn.addGate()
		tries++
	}
	//
	syn.readModel(&model)
	log.Debugf("synthesized %s at distance %d with %d gates",
		bitfun.ToString(funSpec), distance, model.NumGates)
	//
	return model, nil
}

// synthesizer holds the incremental SAT encoding of one growing-circuit
// search.  Nothing is shared between calls to Synthesize.
type synthesizer struct {
	slv      *gini.Gini
	kind     Kind
	funSpec  *bitset.BitSet
	distance uint
	numVars  uint
	// b holds one truth-value literal per node per truth-table row; the first
	// numVars+1 nodes are fixed to the input columns.
	b [][]z.Lit
	// sel holds the one-hot structure selectors (per gate, per fan-in slot,
	// per candidate source node).
	sel [][][]z.Lit
	// pol holds the fan-in polarity literals parallel to sel.
	pol [][]z.Lit
	// outP is the output polarity choice, left open to the solver.
	outP z.Lit
}

func newSynthesizer(kind Kind, funSpec *bitset.BitSet, distance uint) *synthesizer {
	syn := &synthesizer{
		slv:      gini.New(),
		kind:     kind,
		funSpec:  funSpec,
		distance: distance,
		numVars:  bitfun.CeilLog2(funSpec.Len()),
	}
	syn.outP = syn.slv.Lit()
	// Fix the truth columns of the constant-zero node and the primary inputs.
	for i := uint(0); i <= syn.numVars; i++ {
		row := make([]z.Lit, funSpec.Len())
		//
		for t := uint(0); t < funSpec.Len(); t++ {
			row[t] = syn.slv.Lit()
			//
			if bitfun.Value(i, t) {
				syn.clause(row[t])
			} else {
				syn.clause(row[t].Not())
			}
		}
		//
		syn.b = append(syn.b, row)
	}
	//
	return syn
}

// clause adds a single clause over the given literals.
func (p *synthesizer) clause(ms ...z.Lit) {
	for _, m := range ms {
		p.slv.Add(m)
	}
	//
	p.slv.Add(z.LitNull)
}

// solve re-assumes the function semantics against the current final node and
// checks satisfiability.  Assumption literals let each iteration replace the
// semantics without re-adding structural constraints: clauses guarded by a
// stale activation literal simply become inert.
func (p *synthesizer) solve() bool {
	last := p.b[len(p.b)-1]
	//
	if p.distance == 0 {
		act := p.slv.Lit()
		// The realized value of row t is last[t] XOR NOT(outP); force it to
		// equal the specification on every row.
		for t := uint(0); t < p.funSpec.Len(); t++ {
			if p.funSpec.Test(t) {
				p.clause(act.Not(), last[t].Not(), p.outP)
				p.clause(act.Not(), last[t], p.outP.Not())
			} else {
				p.clause(act.Not(), last[t].Not(), p.outP.Not())
				p.clause(act.Not(), last[t], p.outP)
			}
		}
		//
		p.slv.Assume(act)
	} else {
		// Define one mismatch literal per row and bound their count with a
		// sequential-counter cardinality constraint.
		act := p.slv.Lit()
		mismatches := make([]z.Lit, p.funSpec.Len())
		//
		for t := uint(0); t < p.funSpec.Len(); t++ {
			d, x, y := p.slv.Lit(), last[t], p.outP
			mismatches[t] = d
			// For a true specification row the realized value mismatches
			// exactly when last[t] differs from outP, and dually otherwise.
			if p.funSpec.Test(t) {
				p.clause(d.Not(), x, y)
				p.clause(d.Not(), x.Not(), y.Not())
				p.clause(d, x.Not(), y)
				p.clause(d, x, y.Not())
			} else {
				p.clause(d.Not(), x.Not(), y)
				p.clause(d.Not(), x, y.Not())
				p.clause(d, x, y)
				p.clause(d, x.Not(), y.Not())
			}
		}
		//
		p.atMost(act, mismatches, p.distance)
		p.slv.Assume(act)
	}
	//
	return p.slv.Solve() == 1
}

// atMost bounds the number of true literals among ms by k, using a sequential
// counter.  The overflow clauses are guarded by act: once a later iteration
// stops assuming act, the bound on this iteration's (by then internal) node
// becomes inert.
func (p *synthesizer) atMost(act z.Lit, ms []z.Lit, k uint) {
	if k >= uint(len(ms)) {
		return
	} else if k == 0 {
		for _, m := range ms {
			p.clause(act.Not(), m.Not())
		}
		//
		return
	}
	// prev[j] reads "at least j+1 of the literals seen so far are true".
	prev := make([]z.Lit, k)
	for j := range prev {
		prev[j] = p.slv.Lit()
	}
	//
	p.clause(ms[0].Not(), prev[0])
	//
	for i := 1; i < len(ms); i++ {
		next := make([]z.Lit, k)
		for j := range next {
			next[j] = p.slv.Lit()
		}
		//
		p.clause(ms[i].Not(), next[0])
		p.clause(prev[0].Not(), next[0])
		//
		for j := uint(1); j < k; j++ {
			p.clause(prev[j].Not(), next[j])
			p.clause(ms[i].Not(), prev[j-1].Not(), next[j])
		}
		// A k-th register already set forbids one more true literal.
		p.clause(act.Not(), ms[i].Not(), prev[k-1].Not())
		//
		prev = next
	}
}

// addGate introduces one more gate node: fresh one-hot structure selectors
// over all existing nodes, polarity choices, and per-row truth values related
// to the selected fan-ins by implication-guarded wiring clauses.
func (p *synthesizer) addGate() {
	i := uint(len(p.b))
	fanIn := p.kind.FanIn()
	//
	sel := make([][]z.Lit, fanIn)
	pol := make([]z.Lit, fanIn)
	//
	for c := uint(0); c < fanIn; c++ {
		sel[c] = make([]z.Lit, i)
		pol[c] = p.slv.Lit()
		//
		for j := uint(0); j < i; j++ {
			sel[c][j] = p.slv.Lit()
		}
		// Exactly one source is selected per fan-in slot.
		p.clause(sel[c]...)
		//
		for j := uint(0); j < i; j++ {
			for k := j + 1; k < i; k++ {
				p.clause(sel[c][j].Not(), sel[c][k].Not())
			}
		}
	}
	// Strictly increasing fan-in order prunes symmetric duplicates.
	for c := uint(0); c+1 < fanIn; c++ {
		for j := uint(0); j < i; j++ {
			for k := uint(0); k <= j; k++ {
				p.clause(sel[c][j].Not(), sel[c+1][k].Not())
			}
		}
	}
	// A Majority gate with at most one positive-polarity input is degenerate.
	if p.kind == MIG {
		p.clause(pol[0], pol[1])
		p.clause(pol[0], pol[2])
		p.clause(pol[1], pol[2])
	}
	//
	row := make([]z.Lit, p.funSpec.Len())
	//
	for t := uint(0); t < p.funSpec.Len(); t++ {
		out := p.slv.Lit()
		row[t] = out
		//
		ins := make([]z.Lit, fanIn)
		for c := uint(0); c < fanIn; c++ {
			ins[c] = p.slv.Lit()
		}
		// Gate semantics
		if p.kind == MIG {
			p.clause(out.Not(), ins[0], ins[1])
			p.clause(out.Not(), ins[0], ins[2])
			p.clause(out.Not(), ins[1], ins[2])
			p.clause(out, ins[0].Not(), ins[1].Not())
			p.clause(out, ins[0].Not(), ins[2].Not())
			p.clause(out, ins[1].Not(), ins[2].Not())
		} else {
			p.clause(out.Not(), ins[0])
			p.clause(out.Not(), ins[1])
			p.clause(out, ins[0].Not(), ins[1].Not())
		}
		// Wiring: selecting source j forces the slot's input value to the
		// source's truth value under the chosen polarity.
		for c := uint(0); c < fanIn; c++ {
			for j := uint(0); j < i; j++ {
				s, b, a, q := sel[c][j], p.b[j][t], ins[c], pol[c]
				p.clause(s.Not(), q.Not(), b.Not(), a)
				p.clause(s.Not(), q.Not(), b, a.Not())
				p.clause(s.Not(), q, b.Not(), a.Not())
				p.clause(s.Not(), q, b, a)
			}
		}
	}
	//
	p.b = append(p.b, row)
	p.sel = append(p.sel, sel)
	p.pol = append(p.pol, pol)
}

// readModel populates the model from the satisfying assignment, including the
// achieved truth table (which may legitimately differ from the request when a
// non-zero distance was allowed).
func (p *synthesizer) readModel(model *Model) {
	for g := range p.sel {
		row := make([]uint, p.kind.FanIn())
		pol := make([]bool, p.kind.FanIn())
		//
		for c := range p.sel[g] {
			for j, s := range p.sel[g][c] {
				if p.slv.Value(s) {
					row[c] = uint(j)
					break
				}
			}
			//
			pol[c] = p.slv.Value(p.pol[g][c])
		}
		//
		model.S = append(model.S, row)
		model.P = append(model.P, pol)
	}
	//
	model.NumGates = uint(len(model.S)) - model.NumInputs
	model.Out = uint(len(model.S)) - 1
	model.OutP = p.slv.Value(p.outP)
	//
	achieved := bitset.New(p.funSpec.Len())
	last := p.b[len(p.b)-1]
	//
	for t := uint(0); t < p.funSpec.Len(); t++ {
		achieved.SetTo(t, p.slv.Value(last[t]) == model.OutP)
	}
	//
	model.FunSpec = achieved
}
