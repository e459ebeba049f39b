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
	"math/rand"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/cache"
	"github.com/consensys/go-als/pkg/als/catalogue"
	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/optimizer"
	"github.com/consensys/go-als/pkg/als/rewrite"
	"github.com/consensys/go-als/pkg/als/smtsynth"
	"github.com/consensys/go-als/pkg/util"
)

var alsCmd = &cobra.Command{
	Use:   "als [flags] netlist_file",
	Short: "approximate a LUT-mapped design.",
	Long: `Synthesize a catalogue of approximate LUT implementations for a given design,
	 then search the substitution space for trade-offs between output error and
	 circuit size.  Each archived trade-off is written out as a design variant.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		module := readNetlistFile(args[0])
		store := openCatalogueStore(cmd)
		//
		if store != nil {
			defer store.Close()
		}
		//
		stats := util.NewPerfStats()
		//
		cat, err := catalogue.Build(module, catalogue.Params{
			Kind:     networkKind(cmd),
			MaxTries: GetUint(cmd, "tries"),
			Workers:  GetUint(cmd, "workers"),
			Store:    store,
		})
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		stats.Log("Building catalogue")
		stats = util.NewPerfStats()
		//
		params := optimizer.DefaultParams()
		params.Metric = optimizer.Metric(GetString(cmd, "metric"))
		params.MaxIter = GetUint(cmd, "iterations")
		params.TestVectors = GetUint(cmd, "vectors")
		params.Weights = parseWeights(GetStringArray(cmd, "weight"))
		//
		rng := rand.New(rand.NewSource(GetInt64(cmd, "seed")))
		//
		opt, err := optimizer.New(module, cat, params, rng)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		archive := opt.Run()
		stats.Log("Optimizing design")
		// Report and materialize the archive.
		table := formatArchive(archive)
		fmt.Print(table)
		//
		writeVariants(cmd, module, cat, opt, archive, table)
	},
}

// openCatalogueStore opens the persistent synthesis cache, when one was
// configured.
func openCatalogueStore(cmd *cobra.Command) *cache.Store {
	filename := GetString(cmd, "catalogue")
	//
	if filename == "" {
		return nil
	}
	//
	store, err := cache.Open(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	return store
}

// formatArchive renders the archive as a table, one line per trade-off.
func formatArchive(archive []optimizer.Entry) string {
	var builder strings.Builder
	//
	builder.WriteString("Entry    Chosen LUTs                      Arel      Gates\n")
	//
	for i, entry := range archive {
		choices := make([]string, len(entry.Solution))
		for j, c := range entry.Solution {
			choices[j] = fmt.Sprintf("%d", c)
		}
		//
		builder.WriteString(fmt.Sprintf("%5d    %-30s   %.6f  %.6f\n",
			i, strings.Join(choices, " "), entry.Value[0], entry.Value[1]))
	}
	//
	return builder.String()
}

// writeVariants materializes every archived trade-off as a design under the
// output directory, alongside the archive table itself.
func writeVariants(cmd *cobra.Command, module *netlist.Module, cat catalogue.Catalogue,
	opt *optimizer.Optimizer, archive []optimizer.Entry, table string) {
	//
	outDir := GetString(cmd, "output")
	if outDir == "" {
		outDir = fmt.Sprintf("als_%s", module.Name)
	}
	//
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	if err := os.WriteFile(path.Join(outDir, "archive.txt"), []byte(table), 0644); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	for i, entry := range archive {
		variant, err := variantModule(module, cat, opt, entry, GetFlag(cmd, "rewrite"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		filename := path.Join(outDir, fmt.Sprintf("variant_%03d.json", i))
		//
		if err := netlist.WriteFile(variant, filename); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	//
	log.Debugf("wrote %d design variants to %s", len(archive), outDir)
}

// variantModule clones the design and applies one archived substitution to
// it, either by rewriting the chosen LUT parameters or by materializing the
// synthesized gate networks.
func variantModule(module *netlist.Module, cat catalogue.Catalogue,
	opt *optimizer.Optimizer, entry optimizer.Entry, materialize bool) (*netlist.Module, error) {
	//
	var (
		variant = module.Clone()
		models  = make(map[string]smtsynth.Model)
	)
	//
	for i, handle := range opt.Cells() {
		cell := opt.Graph().Vertices[handle].Cell
		models[cell.Name] = cat.Ladder(cell.Lut)[entry.Solution[i]]
	}
	//
	if materialize {
		return variant, rewrite.All(variant, models)
	}
	//
	for name, model := range models {
		variant.CellByName(name).Lut = bitfun.ToString(model.FunSpec)
	}
	//
	return variant, nil
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(alsCmd)
	alsCmd.Flags().StringP("metric", "m", "ers", "error metric to optimise for (ers, epsmax or rel)")
	alsCmd.Flags().StringArrayP("weight", "w", []string{}, "assign a power-of-two weight to an output signal")
	alsCmd.Flags().UintP("iterations", "i", 2500, "number of annealing moves")
	alsCmd.Flags().Uint("vectors", 1000, "number of sampled test vectors for the ers metric")
	alsCmd.Flags().BoolP("rewrite", "r", false, "materialize variants as primitive gates")
	alsCmd.Flags().StringP("output", "o", "", "output directory (defaults to als_<design>)")
	alsCmd.Flags().Int64("seed", 0, "seed of the annealing random source")
}
