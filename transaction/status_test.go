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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOrder(t *testing.T) {
	ordered := []string{"NEW", "BEGIN_STARTED", "BEGIN_FINISHED", "PREPARE_STARTED", "PREPARE_FINISHED",
		"COMMIT_STARTED", "COMMIT_FINISHED", "ROLLBACK_STARTED", "ROLLBACK_FINISHED"}
	for i, name := range ordered {
		s := Status(i)
		assert.Equal(t, name, s.String())
		assert.Equal(t, s, StatusValues[name])
	}
	assert.Equal(t, "UNKNOWN(42)", Status(42).String())
}

func TestStatusIsFinished(t *testing.T) {
	for s := range StatusNames {
		assert.Equal(t, s == StatusCommitFinished || s == StatusRollbackFinished, s.IsFinished(), s.String())
	}
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Status{"s": StatusPrepareFinished})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"PREPARE_FINISHED"}`, string(b))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"commit_started"`), &s))
	assert.Equal(t, StatusCommitStarted, s)

	assert.Error(t, json.Unmarshal([]byte(`"DONE"`), &s))
	_, err = json.Marshal(Status(99))
	assert.Error(t, err)
}

func TestFormatStatuses(t *testing.T) {
	assert.Equal(t, "[PREPARE_FINISHED, COMMIT_STARTED]", formatStatuses([]Status{StatusPrepareFinished, StatusCommitStarted}))
	assert.Equal(t, "[]", formatStatuses(nil))
}
