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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticTokenProvider(t *testing.T) {
	p := NewStaticTokenProvider([]string{"alice", ""}, []string{"system"})

	assert.True(t, p.IsValid("alice"))
	assert.False(t, p.IsInstanceAdminOrSystem("alice"))
	assert.True(t, p.IsValid("system"))
	assert.True(t, p.IsInstanceAdminOrSystem("system"))
	assert.False(t, p.IsValid(""))
	assert.False(t, p.IsValid("bob"))

	p.Add("bob", false)
	assert.True(t, p.IsValid("bob"))

	p.Remove("alice")
	assert.False(t, p.IsValid("alice"))
	assert.False(t, p.IsInstanceAdminOrSystem("alice"))
}
