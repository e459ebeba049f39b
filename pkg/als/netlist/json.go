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
package netlist

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReadFile parses a module from a JSON netlist file.
func ReadFile(filename string) (*Module, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	//
	return Read(bytes)
}

// Read parses a module from its JSON encoding.
func Read(bytes []byte) (*Module, error) {
	var module Module
	//
	if err := json.Unmarshal(bytes, &module); err != nil {
		return nil, errors.Wrap(err, "malformed netlist")
	}
	//
	if err := module.Validate(); err != nil {
		return nil, err
	}
	//
	return &module, nil
}

// WriteFile serialises a module into a JSON netlist file.
func WriteFile(module *Module, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	//
	defer file.Close()
	//
	return Write(module, file)
}

// Write serialises a module as indented JSON.
func Write(module *Module, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	//
	return enc.Encode(module)
}
