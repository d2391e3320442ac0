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
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/endink/go-twopc/provider"
	"github.com/endink/go-twopc/transaction"
)

const (
	OpPut            = "put"
	OpGet            = "get"
	OpDelete         = "delete"
	OpCreateEntities = "createEntities"
)

// Executor runs key/value operations inside the badger transaction bound to the call.
type Executor struct{}

var _ transaction.OperationExecutor = Executor{}

func (Executor) ExecuteOperation(ctx context.Context, _ string, operationName string, args []interface{}) (interface{}, error) {
	h, err := boundHandle(ctx)
	if err != nil {
		return nil, err
	}
	switch operationName {
	case OpPut:
		key, err := keyArg(operationName, args, 0)
		if err != nil {
			return nil, err
		}
		value, err := provider.StringArg(operationName, args, 1)
		if err != nil {
			return nil, err
		}
		return nil, h.set(key, []byte(value))
	case OpGet:
		key, err := keyArg(operationName, args, 0)
		if err != nil {
			return nil, err
		}
		return h.get(key)
	case OpDelete:
		key, err := keyArg(operationName, args, 0)
		if err != nil {
			return nil, err
		}
		return nil, h.delete(key)
	case OpCreateEntities:
		prefix, err := keyArg(operationName, args, 0)
		if err != nil {
			return nil, err
		}
		names, err := provider.StringArgs(operationName, args, 1)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if err := h.set(prefix+"/"+name, []byte(name)); err != nil {
				return nil, err
			}
		}
		return len(names), nil
	default:
		return nil, fmt.Errorf("unknown operation '%s'", operationName)
	}
}

func boundHandle(ctx context.Context) (*Handle, error) {
	v, ok := transaction.HandleFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no transaction bound to the call")
	}
	h, ok := v.(*Handle)
	if !ok || h == nil {
		return nil, fmt.Errorf("unexpected transaction handle %T", v)
	}
	if h.done {
		return nil, fmt.Errorf("transaction '%s' is already finished", h.id)
	}
	return h, nil
}

func keyArg(operation string, args []interface{}, i int) (string, error) {
	key, err := provider.StringArg(operation, args, i)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("operation '%s' key cannot be empty", operation)
	}
	if strings.HasPrefix(key, reservedPrefix) {
		return "", fmt.Errorf("key '%s' is reserved", key)
	}
	return key, nil
}

func (h *Handle) set(key string, value []byte) error {
	if err := h.txn.Set([]byte(key), value); err != nil {
		return err
	}
	h.record(Write{Key: key, Value: value})
	return nil
}

func (h *Handle) delete(key string) error {
	if err := h.txn.Delete([]byte(key)); err != nil {
		return err
	}
	h.record(Write{Key: key, Delete: true})
	return nil
}

// get sees the writes of its own transaction, a missing key is nil.
func (h *Handle) get(key string) (interface{}, error) {
	item, err := h.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return string(v), nil
}
