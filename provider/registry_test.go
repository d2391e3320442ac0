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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedBackend string

func (b namedBackend) Name() string { return string(b) }

func (b namedBackend) Open(dataPath string) (*Resource, error) {
	if dataPath == "" {
		return nil, errors.New("data path required")
	}
	return &Resource{Close: func() error { return nil }}, nil
}

func TestRegistry(t *testing.T) {
	r := &registry{}
	require.NoError(t, r.Register(namedBackend("zeta")))
	require.NoError(t, r.Register(namedBackend("alpha")))
	assert.EqualError(t, r.Register(nil), "backend can not be null")
	assert.EqualError(t, r.Register(namedBackend("")), "backend name can not be empty")

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())

	b, ok := r.TryLoad("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", b.Name())

	_, ok = r.TryLoad("beta")
	assert.False(t, ok)
	assert.Panics(t, func() { r.Load("beta") })
}

func TestOpenBackend(t *testing.T) {
	require.NoError(t, DefaultRegistry().Register(namedBackend("registry-test")))

	_, err := OpenBackend("registry-test", "")
	assert.EqualError(t, err, "data path required")

	res, err := OpenBackend("registry-test", "/data")
	require.NoError(t, err)
	assert.NoError(t, res.Close())

	_, err = OpenBackend("missing", "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend named 'missing' was not found")
}

func TestStringArg(t *testing.T) {
	args := []interface{}{"a", float64(1.5), 7, int64(8), []byte("b"), true}

	for i, expected := range []string{"a", "1.5", "7", "8", "b"} {
		s, err := StringArg("op", args, i)
		require.NoError(t, err)
		assert.Equal(t, expected, s)
	}

	_, err := StringArg("op", args, 5)
	assert.EqualError(t, err, "operation 'op' argument 5 must be a string, got bool")
	_, err = StringArg("op", args, 6)
	assert.EqualError(t, err, "operation 'op' expects at least 7 arguments, got 6")

	all, err := StringArgs("op", args[:5], 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.5", "7", "8", "b"}, all)
}
