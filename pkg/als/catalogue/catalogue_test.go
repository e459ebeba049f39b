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
package catalogue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/cache"
	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// lutModule builds a module instantiating the given two-input LUT functions.
func lutModule(funs ...string) *netlist.Module {
	m := netlist.NewModule("unit")
	//
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	//
	for i, fun := range funs {
		y := m.AddWire(fmt.Sprintf("y%d", i), 1)
		y.PortOutput = true
		//
		m.AddCell(&netlist.Cell{
			Name: fmt.Sprintf("g%d", i),
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

func TestBuild_LadderShape(t *testing.T) {
	cat, err := Build(lutModule("0110", "1000"), DefaultParams())
	require.NoError(t, err)
	require.Len(t, cat, 2)
	//
	for _, fun := range []string{"0110", "1000"} {
		ladder := cat.Ladder(fun)
		require.NotEmpty(t, ladder, "no ladder for %q", fun)
		// Entry zero is exact.
		assert.Equal(t, fun, bitfun.ToString(ladder[0].FunSpec))
		// Gate counts never grow along the ladder, and it ends gate free.
		for i := 1; i < len(ladder); i++ {
			assert.LessOrEqual(t, ladder[i].NumGates, ladder[i-1].NumGates)
		}
		//
		assert.Equal(t, uint(0), ladder[len(ladder)-1].NumGates)
	}
}

func TestBuild_SharedFunction(t *testing.T) {
	// Two cells with the same parameter produce a single catalogue entry.
	cat, err := Build(lutModule("1000", "1000"), DefaultParams())
	require.NoError(t, err)
	assert.Len(t, cat, 1)
}

func TestBuild_SingleWorkerMatchesParallel(t *testing.T) {
	module := lutModule("0110", "1000", "1110")
	//
	serial, err := Build(module, Params{Kind: smtsynth.AIG, MaxTries: 20, Workers: 1})
	require.NoError(t, err)
	//
	parallel, err := Build(module, Params{Kind: smtsynth.AIG, MaxTries: 20, Workers: 4})
	require.NoError(t, err)
	//
	require.Len(t, parallel, len(serial))
	//
	for fun, ladder := range serial {
		other := parallel.Ladder(fun)
		require.Len(t, other, len(ladder), "ladder of %q", fun)
		//
		for i := range ladder {
			assert.Equal(t, ladder[i].NumGates, other[i].NumGates)
		}
	}
}

func TestBuild_WithCache(t *testing.T) {
	store, err := cache.OpenInMemory()
	require.NoError(t, err)
	//
	defer store.Close()
	//
	params := DefaultParams()
	params.Store = store
	//
	first, err := Build(lutModule("0110"), params)
	require.NoError(t, err)
	// A second build must be served from the cache with identical results.
	second, err := Build(lutModule("0110"), params)
	require.NoError(t, err)
	//
	require.Len(t, second, len(first))
	//
	for fun, ladder := range first {
		other := second.Ladder(fun)
		require.Len(t, other, len(ladder))
		//
		for i := range ladder {
			assert.Equal(t, ladder[i].Marshal(), other[i].Marshal())
		}
	}
}

func TestCatalogue_TableOf(t *testing.T) {
	cat, err := Build(lutModule("1000"), DefaultParams())
	require.NoError(t, err)
	//
	table := cat.TableOf("1000", 0)
	require.NotNil(t, table)
	assert.Equal(t, "1000", bitfun.ToString(table))
	// Out of range variants and unknown functions yield nothing.
	assert.Nil(t, cat.TableOf("1000", 100))
	assert.Nil(t, cat.TableOf("0000", 0))
}
