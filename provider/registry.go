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

package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/endink/go-twopc/transaction"
)

// Resource is the resource manager side of one participant.
type Resource struct {
	Provider transaction.DatabaseTransactionProvider
	Executor transaction.OperationExecutor
	Close    func() error
}

// Backend opens a Resource over the data found at a path.
type Backend interface {
	Name() string
	Open(dataPath string) (*Resource, error)
}

var onceReg sync.Once
var instance Registry

type Registry interface {
	TryLoad(name string) (Backend, bool)
	Load(name string) Backend
	Register(backend Backend) error
	Names() []string
}

func DefaultRegistry() Registry {
	onceReg.Do(func() {
		instance = &registry{}
	})
	return instance
}

type registry struct {
	mp sync.Map
}

func (r *registry) TryLoad(name string) (Backend, bool) {
	v, ok := r.mp.Load(name)
	if !ok {
		return nil, false
	}
	b, ok := v.(Backend)
	return b, ok
}

func (r *registry) Load(name string) Backend {
	b, ok := r.TryLoad(name)
	if !ok {
		panic(fmt.Errorf("backend named '%s' was not found", name))
	}
	return b
}

func (r *registry) Register(backend Backend) error {
	if backend == nil {
		return errors.New("backend can not be null")
	}
	n := backend.Name()
	if len(n) == 0 {
		return errors.New("backend name can not be empty")
	}
	r.mp.Store(n, backend)
	return nil
}

func (r *registry) Names() []string {
	var names []string
	r.mp.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// OpenBackend opens the resource of the backend registered as name.
func OpenBackend(name string, dataPath string) (*Resource, error) {
	b, ok := DefaultRegistry().TryLoad(name)
	if !ok {
		return nil, fmt.Errorf("backend named '%s' was not found, registered backends: %v", name, DefaultRegistry().Names())
	}
	return b.Open(dataPath)
}
