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
package optimizer

import "math"

// domination provides the Pareto order shared by all evaluators.  Error
// values are folded around a bias point before comparison, which lets the
// seeding hill climbs target different error levels with the same order.
type domination struct{}

// Dominates reports whether a dominates b: at least as good on both
// objectives and strictly better on one.
func (domination) Dominates(a, b Entry, bias float64) bool {
	var (
		ea, eb = math.Abs(bias - a.Value[0]), math.Abs(bias - b.Value[0])
		ga, gb = a.Value[1], b.Value[1]
	)
	//
	return (ea <= eb && ga < gb) || (ea < eb && ga <= gb)
}

// DeltaDom measures the amount of domination between two entries as the
// product of their objective distances, ignoring objectives on which they
// coincide.
func (domination) DeltaDom(a, b Entry) float64 {
	delta := 1.0
	//
	for i := range a.Value {
		if d := math.Abs(a.Value[i] - b.Value[i]); d != 0 {
			delta *= d
		}
	}
	//
	return delta
}
