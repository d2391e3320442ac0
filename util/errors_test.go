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
package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestCauseChain(t *testing.T) {
	root := errors.New("disk full")
	mid := Wrap(root, "write log entry")
	top := Wrapf(mid, "commit transaction '%s'", "a")

	assert.Equal(t, "commit transaction 'a': write log entry: disk full", top.Error())
	assert.Equal(t, mid, Cause(top))
	assert.Equal(t, root, RootCause(top))
	assert.True(t, errors.Is(top, root))

	chain := CauseChain(top)
	require.Len(t, chain, 3)
	assert.Equal(t, root, chain[2])
}

func TestCauseFollowsStandardWrapping(t *testing.T) {
	root := errors.New("boom")
	err := fmt.Errorf("outer: %w", root)
	assert.Equal(t, root, Cause(err))
	assert.Equal(t, root, RootCause(err))
	assert.Nil(t, Cause(root))
}
