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

	"github.com/google/uuid"
)

// FakeHandle is the resource handle handed out by FakeProvider.
type FakeHandle struct {
	ID uuid.UUID
}

func (h *FakeHandle) String() string {
	return fmt.Sprintf("handle(%s)", h.ID)
}

// FakeProvider records every resource call and fails the ones registered with AddRejectedCall.
type FakeProvider struct {
	mu       sync.Mutex
	calls    []string
	rejected map[string]error
	hooks    map[string]func(id uuid.UUID)
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		rejected: make(map[string]error),
		hooks:    make(map[string]func(id uuid.UUID)),
	}
}

// AddRejectedCall makes every later call named call ("begin", "prepare", "commit" or "rollback") fail with err.
func (p *FakeProvider) AddRejectedCall(call string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected[call] = err
}

func (p *FakeProvider) DeleteRejectedCall(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rejected, call)
}

// SetHook runs fn inside every later call named call, before it returns.
func (p *FakeProvider) SetHook(call string, fn func(id uuid.UUID)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[call] = fn
}

// Calls returns the recorded calls as "<call> <id>" or "<call> <id> recovered"
// for commits and rollbacks that came without a handle.
func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *FakeProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.rejected = make(map[string]error)
	p.hooks = make(map[string]func(id uuid.UUID))
}

func (p *FakeProvider) record(call string, id uuid.UUID, handle interface{}, withHandle bool) error {
	entry := fmt.Sprintf("%s %s", call, id)
	if withHandle && handle == nil {
		entry += " recovered"
	}
	p.mu.Lock()
	p.calls = append(p.calls, entry)
	err := p.rejected[call]
	hook := p.hooks[call]
	p.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return err
}

func (p *FakeProvider) BeginTransaction(_ context.Context, id uuid.UUID) (interface{}, error) {
	if err := p.record("begin", id, nil, false); err != nil {
		return nil, err
	}
	return &FakeHandle{ID: id}, nil
}

func (p *FakeProvider) PrepareTransaction(_ context.Context, id uuid.UUID, handle interface{}) error {
	return p.record("prepare", id, handle, false)
}

func (p *FakeProvider) CommitTransaction(_ context.Context, id uuid.UUID, handle interface{}, _ bool) error {
	return p.record("commit", id, handle, true)
}

func (p *FakeProvider) RollbackTransaction(_ context.Context, id uuid.UUID, handle interface{}, _ bool) error {
	return p.record("rollback", id, handle, true)
}
