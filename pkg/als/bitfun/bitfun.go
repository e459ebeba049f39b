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
package bitfun

import (
	"fmt"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// IsPowerOfTwo determines whether a given value is a power of two.  Zero is
// not considered a power of two.
func IsPowerOfTwo(x uint) bool {
	return x != 0 && x&(x-1) == 0
}

// CeilLog2 returns the ceiling of the base-two logarithm of x, with
// CeilLog2(0) == CeilLog2(1) == 0.
func CeilLog2(x uint) uint {
	if x <= 1 {
		return 0
	}
	//
	return uint(bits.Len(x - 1))
}

// Value returns the value of input variable i on row t of a truth table.
// Variable 0 is the constant zero, whilst variable i (for i > 0) toggles with
// period 2^i.  Thus, variable 1 is the least significant bit of the row index.
func Value(i, t uint) bool {
	if i == 0 {
		return false
	}
	//
	return t%(1<<i) >= 1<<(i-1)
}

// Column returns the full truth-table column of input variable i over numVars
// variables, under a given polarity.  Column 0 with positive polarity is all
// zeroes.
func Column(i, numVars uint, polarity bool) *bitset.BitSet {
	col := bitset.New(1 << numVars)
	//
	for t := uint(0); t < 1<<numVars; t++ {
		col.SetTo(t, Value(i, t) == polarity)
	}
	//
	return col
}

// HammingDistance returns the number of rows on which two truth tables of
// identical length disagree.  Tables of differing length indicate an internal
// error, hence this panics rather than returning an error.
func HammingDistance(bs1, bs2 *bitset.BitSet) uint {
	if bs1.Len() != bs2.Len() {
		panic("hamming distance undefined for tables of different length")
	}
	//
	return bs1.SymmetricDifference(bs2).Count()
}

// FromString parses a truth table written most-significant row first (i.e. the
// rightmost character is row zero), as found in LUT cell parameters.
func FromString(s string) (*bitset.BitSet, error) {
	n := uint(len(s))
	//
	if !IsPowerOfTwo(n) {
		return nil, fmt.Errorf("truth table %q has %d rows", s, n)
	}
	//
	table := bitset.New(n)
	//
	for t := uint(0); t < n; t++ {
		switch s[n-1-t] {
		case '1':
			table.Set(t)
		case '0':
			// already clear
		default:
			return nil, fmt.Errorf("invalid truth table %q", s)
		}
	}
	//
	return table, nil
}

// ToString converts a truth table back into its textual form, most-significant
// row first.  This is the inverse of FromString.
func ToString(table *bitset.BitSet) string {
	n := table.Len()
	buf := make([]byte, n)
	//
	for t := uint(0); t < n; t++ {
		if table.Test(t) {
			buf[n-1-t] = '1'
		} else {
			buf[n-1-t] = '0'
		}
	}
	//
	return string(buf)
}
