/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */

package badgerkv

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/endink/go-twopc/provider"
)

const BackendName = "badger"

type backend struct{}

func init() {
	_ = provider.DefaultRegistry().Register(backend{})
}

func (backend) Name() string { return BackendName }

func (backend) Open(dataPath string) (*provider.Resource, error) {
	db, err := Open(dataPath)
	if err != nil {
		return nil, err
	}
	return NewResource(db), nil
}

func NewResource(db *badger.DB) *provider.Resource {
	return &provider.Resource{
		Provider: NewProvider(db),
		Executor: Executor{},
		Close:    db.Close,
	}
}

// Read returns the committed value of key, nil when missing.
func Read(db *badger.DB, key string) ([]byte, error) {
	var value []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}
