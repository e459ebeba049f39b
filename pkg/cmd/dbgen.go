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
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/cache"
	"github.com/consensys/go-als/pkg/als/smtsynth"
	"github.com/consensys/go-als/pkg/util"
)

var dbgenCmd = &cobra.Command{
	Use:   "dbgen [flags] num_inputs",
	Short: "pre-populate the catalogue cache.",
	Long: `Synthesize the full approximation ladder of every function over a given number
	 of variables, storing the results in the persistent catalogue cache.  Later
	 runs over real designs then start from a warm cache.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		var numVars uint
		//
		if _, err := fmt.Sscanf(args[0], "%d", &numVars); err != nil || numVars == 0 || numVars > 4 {
			fmt.Println("number of inputs must lie between 1 and 4")
			os.Exit(2)
		}
		//
		store := openCatalogueStore(cmd)
		if store == nil {
			fmt.Println("dbgen requires the --catalogue flag")
			os.Exit(2)
		}
		//
		defer store.Close()
		//
		stats := util.NewPerfStats()
		//
		if err := populate(cmd, numVars, store); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		stats.Log(fmt.Sprintf("Populating %d-input catalogue", numVars))
	},
}

// populate synthesizes the ladder of every function over numVars variables,
// partitioning the function space across workers.
func populate(cmd *cobra.Command, numVars uint, store *cache.Store) error {
	var (
		group  errgroup.Group
		params = smtsynth.Params{Kind: networkKind(cmd), MaxTries: GetUint(cmd, "tries")}
		total  = uint64(1) << (1 << numVars)
	)
	//
	workers := GetUint(cmd, "workers")
	if workers == 0 {
		workers = uint(runtime.NumCPU())
	}
	//
	for w := uint64(0); w < uint64(workers); w++ {
		group.Go(func() error {
			for value := w; value < total; value += uint64(workers) {
				if err := populateOne(value, numVars, params, store); err != nil {
					return err
				}
			}
			//
			return nil
		})
	}
	//
	return group.Wait()
}

// populateOne walks the ladder of a single function, synthesizing whatever
// the cache does not already hold.
func populateOne(value uint64, numVars uint, params smtsynth.Params, store *cache.Store) error {
	spec := tableOfValue(value, numVars)
	fun := bitfun.ToString(spec)
	//
	for distance := uint(0); ; distance++ {
		model, hit := store.Lookup(fun, distance)
		//
		if !hit {
			var err error
			//
			model, err = smtsynth.Synthesize(spec, distance, params)
			//
			if distance > 0 && errors.Is(err, smtsynth.ErrSynthesisExhausted) {
				return nil
			} else if err != nil {
				return err
			}
			//
			store.Insert(fun, distance, model)
		}
		//
		if model.NumGates == 0 {
			return nil
		}
	}
}

// tableOfValue expands the binary value of a truth table into bit-set form,
// row zero at the least significant bit.
func tableOfValue(value uint64, numVars uint) *bitset.BitSet {
	table := bitset.New(1 << numVars)
	//
	for t := uint(0); t < 1<<numVars; t++ {
		table.SetTo(t, value&(1<<t) != 0)
	}
	//
	return table
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(dbgenCmd)
}
