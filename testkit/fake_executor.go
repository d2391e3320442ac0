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

package testkit

import (
	"context"
	"fmt"
	"sync"
)

type OperationFunc func(ctx context.Context, sessionToken string, args []interface{}) (interface{}, error)

// FakeExecutor runs operations registered by name. Unknown names fail.
type FakeExecutor struct {
	mu         sync.Mutex
	operations map[string]OperationFunc
	executed   []string
}

func NewFakeExecutor() *FakeExecutor {
	e := &FakeExecutor{operations: make(map[string]OperationFunc)}
	e.Register("echo", func(_ context.Context, _ string, args []interface{}) (interface{}, error) {
		return args, nil
	})
	e.Register("fail", func(_ context.Context, _ string, args []interface{}) (interface{}, error) {
		return nil, fmt.Errorf("operation failed: %v", args)
	})
	return e
}

func (e *FakeExecutor) Register(name string, fn OperationFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.operations[name] = fn
}

// Executed returns the names of the operations run so far.
func (e *FakeExecutor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func (e *FakeExecutor) ExecuteOperation(ctx context.Context, sessionToken string, operationName string, operationArguments []interface{}) (interface{}, error) {
	e.mu.Lock()
	fn, ok := e.operations[operationName]
	e.executed = append(e.executed, operationName)
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown operation '%s'", operationName)
	}
	return fn(ctx, sessionToken, operationArguments)
}
