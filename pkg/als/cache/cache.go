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

// Package cache provides a persistent store of synthesis results, keyed by
// truth table and output distance.  Synthesizing a LUT function can take
// seconds of solver time, so results are shared across runs (and across
// designs, since the key is the function itself rather than the cell).
package cache

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/consensys/go-als/pkg/als/smtsynth"
)

// Store is a badger-backed map from (function, distance) pairs onto
// synthesized models.  A Store is safe for concurrent use.
type Store struct {
	db *badger.DB
	mu sync.Mutex
}

// Open opens (or creates) a store rooted at a given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	//
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	//
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store backed by memory only.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	//
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	//
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup retrieves the model synthesized for a function at a given distance,
// reporting whether one was present.
func (s *Store) Lookup(fun string, distance uint) (smtsynth.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	//
	var data []byte
	//
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(fun, distance))
		if err != nil {
			return err
		}
		//
		data, err = item.ValueCopy(nil)
		//
		return err
	})
	//
	if err == badger.ErrKeyNotFound {
		return smtsynth.Model{}, false
	} else if err != nil {
		// Read failures degrade into cache misses.
		log.Warnf("catalogue cache lookup failed: %v", err)
		return smtsynth.Model{}, false
	}
	//
	model, err := smtsynth.UnmarshalModel(data)
	if err != nil {
		log.Warnf("discarding corrupt catalogue cache entry: %v", err)
		return smtsynth.Model{}, false
	}
	//
	return model, true
}

// Insert records the model synthesized for a function at a given distance.
// The model is additionally registered under its achieved function at
// distance zero, since it realizes that function exactly.  Store failures are
// logged rather than propagated, as the cache is purely an accelerator.
func (s *Store) Insert(fun string, distance uint, model smtsynth.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	//
	var (
		data     = model.Marshal()
		achieved = bitfun.ToString(model.FunSpec)
	)
	//
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key(fun, distance), data); err != nil {
			return err
		}
		// Secondary key, unless it coincides with the primary one.
		secondary := key(achieved, 0)
		//
		if _, err := txn.Get(secondary); err == badger.ErrKeyNotFound {
			return txn.Set(secondary, data)
		}
		//
		return nil
	})
	//
	if err != nil {
		log.Warnf("catalogue cache insert failed: %v", err)
	}
}

func key(fun string, distance uint) []byte {
	return fmt.Appendf(nil, "%s@%d", fun, distance)
}
