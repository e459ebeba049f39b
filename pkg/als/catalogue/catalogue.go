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

// Package catalogue turns the distinct LUT functions of a design into ladders
// of approximate implementations, one ladder per function.  Entry zero of a
// ladder is always exact; subsequent entries trade growing output distance
// for smaller gate networks, ending with a zero-gate network.
package catalogue

import (
	"runtime"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/cache"
	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// Ladder is the ordered sequence of models synthesized for one function.
// Distances are strictly increasing and gate counts non-increasing along the
// ladder.
type Ladder []smtsynth.Model

// Catalogue maps each LUT function of a design (as a truth-table string) onto
// its ladder of implementations.
type Catalogue map[string]Ladder

// Params configures catalogue construction.
type Params struct {
	// Kind of gate network to synthesize.
	Kind smtsynth.Kind
	// MaxTries bounds the gate budget of approximate synthesis.
	MaxTries uint
	// Workers is the number of concurrent synthesis workers (0 means one
	// per CPU).
	Workers uint
	// Store is an optional persistent cache of synthesis results.
	Store *cache.Store
}

// DefaultParams returns the parameters used when nothing is configured
// explicitly.
func DefaultParams() Params {
	return Params{Kind: smtsynth.AIG, MaxTries: 20}
}

// Build synthesizes the catalogue of a module, covering every distinct LUT
// function it instantiates.  Functions are synthesized concurrently, with
// each worker owning a private partition of the catalogue.
func Build(module *netlist.Module, params Params) (Catalogue, error) {
	funs := distinctFunctions(module)
	//
	workers := params.Workers
	if workers == 0 {
		workers = uint(runtime.NumCPU())
	}
	//
	log.Debugf("synthesizing %d LUT functions on %d workers", len(funs), workers)
	//
	var (
		group      errgroup.Group
		partitions = make([]Catalogue, workers)
	)
	//
	for w := uint(0); w < workers; w++ {
		part := Catalogue{}
		partitions[w] = part
		//
		group.Go(func() error {
			for i := w; i < uint(len(funs)); i += workers {
				ladder, err := buildLadder(funs[i], params)
				if err != nil {
					return err
				}
				//
				part[funs[i]] = ladder
			}
			//
			return nil
		})
	}
	//
	if err := group.Wait(); err != nil {
		return nil, err
	}
	// Merge worker partitions.
	catalogue := Catalogue{}
	//
	for _, part := range partitions {
		for fun, ladder := range part {
			catalogue[fun] = ladder
		}
	}
	//
	return catalogue, nil
}

// Ladder returns the ladder synthesized for a function, or nil when the
// function is not part of this catalogue.
func (c Catalogue) Ladder(fun string) Ladder {
	return c[fun]
}

// TableOf returns the truth table realized by a given ladder entry.  Entry
// zero is the exact function itself.
func (c Catalogue) TableOf(fun string, variant uint) *bitset.BitSet {
	ladder := c[fun]
	//
	if variant >= uint(len(ladder)) {
		return nil
	}
	//
	return ladder[variant].FunSpec
}

// buildLadder synthesizes the full ladder of one function, walking distances
// upwards until a zero-gate network is reached or the gate budget gives out.
func buildLadder(fun string, params Params) (Ladder, error) {
	var ladder Ladder
	//
	for distance := uint(0); ; distance++ {
		model, err := synthesize(fun, distance, params)
		//
		if distance > 0 && errors.Is(err, smtsynth.ErrSynthesisExhausted) {
			// No smaller network within budget; the ladder ends here.
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "synthesizing %q at distance %d", fun, distance)
		}
		//
		ladder = append(ladder, model)
		//
		if model.NumGates == 0 {
			break
		}
	}
	//
	return ladder, nil
}

// synthesize produces the model of one function at one distance, consulting
// the persistent cache when available.
func synthesize(fun string, distance uint, params Params) (smtsynth.Model, error) {
	if params.Store != nil {
		if model, ok := params.Store.Lookup(fun, distance); ok {
			return model, nil
		}
	}
	//
	spec, err := bitfun.FromString(fun)
	if err != nil {
		return smtsynth.Model{}, err
	}
	//
	model, err := smtsynth.Synthesize(spec, distance, smtsynth.Params{
		Kind:     params.Kind,
		MaxTries: params.MaxTries,
	})
	//
	if err != nil {
		return smtsynth.Model{}, err
	}
	//
	if params.Store != nil {
		params.Store.Insert(fun, distance, model)
	}
	//
	return model, nil
}

// distinctFunctions collects the distinct LUT parameters of a module, in a
// deterministic order.
func distinctFunctions(module *netlist.Module) []string {
	seen := make(map[string]bool)
	//
	var funs []string
	//
	for _, cell := range module.Cells {
		if cell.IsLut() && !seen[cell.Lut] {
			seen[cell.Lut] = true
			funs = append(funs, cell.Lut)
		}
	}
	//
	sort.Strings(funs)
	//
	return funs
}
