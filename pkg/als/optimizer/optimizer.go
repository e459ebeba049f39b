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

// Package optimizer searches the space of catalogue substitutions for a
// design, maintaining an archive of mutually non-dominated trade-offs between
// output error and circuit size.  The search follows the archived
// multi-objective simulated annealing scheme: a set of greedy hill climbs
// seeds the archive, which a single annealing run then refines.
package optimizer

import (
	"math"
	"math/rand"
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-als/pkg/als/catalogue"
	"github.com/consensys/go-als/pkg/als/graph"
	"github.com/consensys/go-als/pkg/als/netlist"
)

// Metric selects the error model driving the first objective.
type Metric string

const (
	// MetricErs estimates the error rate over sampled input vectors.
	MetricErs Metric = "ers"
	// MetricEpsMax computes the worst-case numeric error over all inputs.
	MetricEpsMax Metric = "epsmax"
	// MetricReliability propagates signal reliability in closed form.
	MetricReliability Metric = "rel"
)

// Solution assigns one catalogue ladder index to every LUT cell of the
// design, in topological cell order.  The zero solution is the exact circuit.
type Solution []uint

// Entry pairs a solution with its objective values: Value[0] is the error
// objective of the configured metric, Value[1] the gate count relative to the
// exact circuit.
type Entry struct {
	Solution Solution
	Value    [2]float64
}

// Evaluator computes the objective values of candidate solutions, and induces
// the domination order used to maintain the archive.
type Evaluator interface {
	// Setup precomputes whatever the metric needs (e.g. reference outputs).
	Setup() error
	// Value computes both objectives of a solution.
	Value(s Solution) [2]float64
	// Dominates reports whether a dominates b once the error objective has
	// been folded around bias.
	Dominates(a, b Entry, bias float64) bool
	// DeltaDom measures the domination amount between two entries.
	DeltaDom(a, b Entry) float64
}

// Params configures the annealing schedule and the error metric.
type Params struct {
	// Metric drives the first objective.
	Metric Metric
	// MaxIter is the number of annealing moves.
	MaxIter uint
	// TMax is the initial annealing temperature.
	TMax float64
	// Cooling is the per-move temperature factor.
	Cooling float64
	// SoftLimit is the number of hill climbs seeding the archive.
	SoftLimit uint
	// TestVectors bounds the sample size of the ers metric.
	TestVectors uint
	// Weights assigns a power-of-two weight to each output signal.  Unnamed
	// outputs weigh one.
	Weights map[string]float64
}

// DefaultParams returns the standard annealing schedule.
func DefaultParams() Params {
	return Params{
		Metric:      MetricErs,
		MaxIter:     2500,
		TMax:        1500,
		Cooling:     0.9,
		SoftLimit:   20,
		TestVectors: 1000,
	}
}

// Optimizer drives the archive-based annealing search over one design.
type Optimizer struct {
	module *netlist.Module
	graph  *graph.Graph
	order  []uint
	cells  []uint
	maxima []uint
	cat    catalogue.Catalogue
	eval   Evaluator
	params Params
	rng    *rand.Rand
}

// New prepares an optimizer for a module whose catalogue has already been
// built.  The random source is owned by the caller, making runs reproducible
// under a fixed seed.
func New(module *netlist.Module, cat catalogue.Catalogue, params Params,
	rng *rand.Rand) (*Optimizer, error) {
	//
	g, err := graph.Build(module)
	if err != nil {
		return nil, err
	}
	//
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	//
	o := &Optimizer{module: module, graph: g, order: order, cat: cat, params: params, rng: rng}
	//
	for _, handle := range order {
		if g.Vertices[handle].Kind != graph.Cell {
			continue
		}
		//
		cell := g.Vertices[handle].Cell
		if !cell.IsLut() {
			return nil, errors.Errorf("cell %q is not a LUT", cell.Name)
		}
		//
		ladder := cat.Ladder(cell.Lut)
		if len(ladder) == 0 {
			return nil, errors.Errorf("no catalogue entry for cell %q", cell.Name)
		}
		//
		o.cells = append(o.cells, handle)
		o.maxima = append(o.maxima, uint(len(ladder)-1))
	}
	//
	if o.eval, err = newEvaluator(o); err != nil {
		return nil, err
	}
	//
	return o, o.eval.Setup()
}

// newEvaluator instantiates the evaluator of the configured metric.
func newEvaluator(o *Optimizer) (Evaluator, error) {
	switch o.params.Metric {
	case MetricErs:
		return &ersEvaluator{opt: o}, nil
	case MetricEpsMax:
		return &epsMaxEvaluator{opt: o}, nil
	case MetricReliability:
		return &reliabilityEvaluator{opt: o}, nil
	default:
		return nil, errors.Errorf("unknown error metric %q", o.params.Metric)
	}
}

// Cells returns the vertex handles of the design's LUT cells, in the
// topological order indexing solutions.
func (o *Optimizer) Cells() []uint {
	return o.cells
}

// Graph returns the circuit graph underlying this optimizer.
func (o *Optimizer) Graph() *graph.Graph {
	return o.graph
}

// Run seeds the archive with hill climbs and refines it by annealing,
// returning the archive sorted by ascending error objective.
func (o *Optimizer) Run() []Entry {
	archive := o.seed()
	//
	log.Debugf("archive holds %d entries after seeding", len(archive))
	//
	archive = o.anneal(archive)
	//
	slices.SortFunc(archive, func(l, r Entry) int {
		switch {
		case l.Value[0] < r.Value[0]:
			return -1
		case l.Value[0] > r.Value[0]:
			return 1
		default:
			return 0
		}
	})
	//
	return archive
}

// seed performs SoftLimit greedy hill climbs, each biased towards a different
// error level, accepting only dominating neighbors.
func (o *Optimizer) seed() []Entry {
	var archive []Entry
	//
	for i := uint(0); i < o.params.SoftLimit; i++ {
		var (
			bias    = float64(i) / float64(o.params.SoftLimit)
			current = o.entry(make(Solution, len(o.cells)))
		)
		//
		for j := uint(0); j < o.params.MaxIter/10; j++ {
			next := o.entry(o.neighbor(current.Solution))
			//
			if o.eval.Dominates(next, current, bias) {
				current = next
			}
		}
		//
		archive = o.insert(archive, current)
	}
	// The exact circuit anchors the archive even without any hill climb.
	if len(archive) == 0 {
		archive = append(archive, o.entry(make(Solution, len(o.cells))))
	}
	//
	return o.eraseDominated(archive)
}

// anneal runs the archived simulated annealing loop, starting from a random
// archive member.
func (o *Optimizer) anneal(archive []Entry) []Entry {
	var (
		current = archive[o.rng.Intn(len(archive))]
		t       = o.params.TMax
	)
	//
	for i := uint(0); i < o.params.MaxIter; i++ {
		next := o.entry(o.neighbor(current.Solution))
		// Collect entries dominating the candidate.
		var dominating []Entry
		//
		for _, e := range archive {
			if o.eval.Dominates(e, next, 0) {
				dominating = append(dominating, e)
			}
		}
		//
		if o.eval.Dominates(current, next, 0) {
			dominating = append(dominating, current)
		}
		//
		if len(dominating) == 0 {
			current = next
			archive = o.eraseDominated(o.insert(archive, next))
		} else {
			// Accept a dominated move with a probability shrinking in the
			// average domination amount.
			deltaAvg := 0.0
			//
			for _, e := range dominating {
				deltaAvg += o.eval.DeltaDom(e, next)
			}
			//
			deltaAvg /= float64(len(dominating))
			//
			if o.rng.Float64() < 1/(1+math.Exp(deltaAvg*t)) {
				current = next
			}
		}
		//
		t *= o.params.Cooling
	}
	//
	return archive
}

// neighbor perturbs one randomly chosen cell of a solution by a single ladder
// step, clamped to the ladder bounds.
func (o *Optimizer) neighbor(s Solution) Solution {
	next := slices.Clone(s)
	//
	if len(next) == 0 {
		return next
	}
	//
	i := o.rng.Intn(len(next))
	//
	if o.rng.Intn(2) == 0 {
		if next[i] < o.maxima[i] {
			next[i]++
		}
	} else if next[i] > 0 {
		next[i]--
	}
	//
	return next
}

// entry evaluates a solution into an archive entry.
func (o *Optimizer) entry(s Solution) Entry {
	return Entry{Solution: s, Value: o.eval.Value(s)}
}

// insert adds an entry to the archive unless an equal solution is already
// archived.
func (o *Optimizer) insert(archive []Entry, e Entry) []Entry {
	for _, a := range archive {
		if slices.Equal(a.Solution, e.Solution) {
			return archive
		}
	}
	//
	return append(archive, e)
}

// eraseDominated drops every archive entry dominated by another one.
func (o *Optimizer) eraseDominated(archive []Entry) []Entry {
	var kept []Entry
	//
	for i, e := range archive {
		dominated := false
		//
		for j, d := range archive {
			if i != j && o.eval.Dominates(d, e, 0) {
				dominated = true
				break
			}
		}
		//
		if !dominated {
			kept = append(kept, e)
		}
	}
	//
	return kept
}

// choice converts a solution into the per-vertex variant map consumed by the
// evaluator.
func (o *Optimizer) choice(s Solution) graph.Choice {
	choice := graph.Choice{}
	//
	for i, handle := range o.cells {
		choice[handle] = s[i]
	}
	//
	return choice
}

// outputWeight resolves the configured weight of an output vertex by tracing
// the wire its cell drives.  Outputs without a configured weight weigh one.
func (o *Optimizer) outputWeight(handle uint) (float64, bool) {
	cell := o.graph.Vertices[handle].Cell
	//
	for _, conn := range cell.Connections {
		if conn.Input || len(conn.Bits) == 0 {
			continue
		}
		//
		if wire, _ := o.module.WireOf(conn.Bits[0]); wire != nil {
			if weight, ok := o.params.Weights[wire.Name]; ok {
				return weight, true
			}
		}
	}
	//
	return 1.0, false
}

// gateRatio computes the gate count of a solution relative to the exact
// circuit.
func (o *Optimizer) gateRatio(s Solution) float64 {
	exact, chosen := uint(0), uint(0)
	//
	for i, handle := range o.cells {
		ladder := o.cat.Ladder(o.graph.Vertices[handle].Cell.Lut)
		exact += ladder[0].NumGates
		chosen += ladder[s[i]].NumGates
	}
	//
	if exact == 0 {
		return 1.0
	}
	//
	return float64(chosen) / float64(exact)
}
