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
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consensys/go-als/pkg/als/netlist"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// GetFlag gets an expected flag, or panic if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or panic if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array flag, or panic if an error
// arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer flag, or panic if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetInt64 gets an expected 64bit integer flag, or panic if an error arises.
func GetInt64(cmd *cobra.Command, flag string) int64 {
	r, err := cmd.Flags().GetInt64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint64 gets an expected unsigned 64bit integer flag, or panic if an error
// arises.
func GetUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Read a netlist file, reporting any errors encountered.
func readNetlistFile(filename string) *netlist.Module {
	module, err := netlist.ReadFile(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return module
}

// Determine the kind of gate network being synthesized.
func networkKind(cmd *cobra.Command) smtsynth.Kind {
	if GetFlag(cmd, "mig") {
		return smtsynth.MIG
	}
	//
	return smtsynth.AIG
}

// Parse a sequence of "signal=weight" assignments, where each weight must be
// a power of two.
func parseWeights(items []string) map[string]float64 {
	weights := make(map[string]float64)
	//
	for _, item := range items {
		split := strings.Split(item, "=")
		if len(split) != 2 {
			fmt.Printf("malformed weight assignment \"%s\"\n", item)
			os.Exit(2)
		}
		//
		weight, err := strconv.ParseFloat(split[1], 64)
		if err != nil || weight <= 0 || math.Log2(weight) != math.Trunc(math.Log2(weight)) {
			fmt.Printf("weight of \"%s\" must be a positive power of two\n", split[0])
			os.Exit(2)
		}
		//
		weights[split[0]] = weight
	}
	//
	return weights
}
