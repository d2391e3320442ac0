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
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantTransactionStaysOnOneThread(t *testing.T) {
	f := newParticipantFixture(t, "kv", 2)
	f.executor.Register("tid", func(ctx context.Context, _ string, _ []interface{}) (interface{}, error) {
		return syscall.Gettid(), nil
	})

	first := f.begin(t, false)
	var tids []int
	for i := 0; i < 5; i++ {
		v, err := f.ExecuteOperation(context.Background(), first, testToken, testInteractiveKey, "tid", []interface{}{})
		require.NoError(t, err)
		tids = append(tids, v.(int))
	}
	for _, tid := range tids {
		assert.Equal(t, tids[0], tid)
	}

	second := f.beginAs(t, testOtherToken, false)
	v, err := f.ExecuteOperation(context.Background(), second, testOtherToken, testInteractiveKey, "tid", []interface{}{})
	require.NoError(t, err)
	assert.NotEqual(t, tids[0], v.(int), "live transactions never share a thread")
}
