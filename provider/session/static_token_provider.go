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

package session

import (
	"sync"

	"github.com/endink/go-twopc/transaction"
)

// StaticTokenProvider validates session tokens against a registered set.
type StaticTokenProvider struct {
	mu     sync.RWMutex
	tokens map[string]bool
}

var _ transaction.SessionTokenProvider = (*StaticTokenProvider)(nil)

// NewStaticTokenProvider registers tokens as plain sessions and adminTokens as instance admin or system sessions.
func NewStaticTokenProvider(tokens []string, adminTokens []string) *StaticTokenProvider {
	p := &StaticTokenProvider{tokens: make(map[string]bool)}
	for _, t := range tokens {
		p.Add(t, false)
	}
	for _, t := range adminTokens {
		p.Add(t, true)
	}
	return p
}

func (p *StaticTokenProvider) Add(token string, admin bool) {
	if token == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = admin
}

func (p *StaticTokenProvider) Remove(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tokens, token)
}

func (p *StaticTokenProvider) IsValid(sessionToken string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.tokens[sessionToken]
	return ok
}

func (p *StaticTokenProvider) IsInstanceAdminOrSystem(sessionToken string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens[sessionToken]
}
