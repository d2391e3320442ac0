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
package transaction

import (
	"context"

	"github.com/google/uuid"
)

type boundKey struct{}

type bound struct {
	id     uuid.UUID
	handle interface{}
}

// WithHandle binds a transaction and its resource handle to ctx.
func WithHandle(ctx context.Context, id uuid.UUID, handle interface{}) context.Context {
	return context.WithValue(ctx, boundKey{}, bound{id: id, handle: handle})
}

// HandleFromContext returns the resource handle of the transaction the call runs in.
func HandleFromContext(ctx context.Context) (interface{}, bool) {
	b, ok := ctx.Value(boundKey{}).(bound)
	if !ok {
		return nil, false
	}
	return b.handle, true
}

func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	b, ok := ctx.Value(boundKey{}).(bound)
	if !ok {
		return uuid.Nil, false
	}
	return b.id, true
}
