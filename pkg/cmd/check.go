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
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-als/pkg/als/miter"
	"github.com/consensys/go-als/pkg/util"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] golden_file approx_file",
	Short: "certify an approximate design against its golden version.",
	Long: `Prove, by satisfiability of a miter circuit, that every output of the
	 approximate design stays within a given numeric threshold of the golden
	 design over the whole input space.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		var (
			golden = readNetlistFile(args[0])
			approx = readNetlistFile(args[1])
			stats  = util.NewPerfStats()
		)
		//
		report, err := miter.Check(golden, approx, GetUint64(cmd, "threshold"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		stats.Log("Checking miter")
		//
		if report.Safe {
			fmt.Println("OK")
			return
		}
		// Print the witness in a stable order.
		fmt.Println("threshold exceeded, for example with:")
		//
		names := make([]string, 0, len(report.Inputs))
		for name := range report.Inputs {
			names = append(names, name)
		}
		//
		sort.Strings(names)
		//
		for _, name := range names {
			value := 0
			if report.Inputs[name] {
				value = 1
			}
			//
			fmt.Printf("  %s = %d\n", name, value)
		}
		//
		os.Exit(1)
	},
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Uint64("threshold", 0, "maximum tolerated numeric output deviation")
}
