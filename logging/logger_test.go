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
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("same")
	b := GetLogger("same")
	assert.True(t, a == b)
}

func TestSetLevel(t *testing.T) {
	GetLogger("level-test")
	require.NoError(t, SetLevel("level-test", "debug"))
	lvl, ok := GetLevel("level-test")
	require.True(t, ok)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	assert.Error(t, SetLevel("level-test", "loud"))
	assert.Error(t, SetLevel("no-such-logger", "info"))
}

func TestParseLogFormat(t *testing.T) {
	f, err := ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONOutput, f)

	f, err = ParseLogFormat("console")
	require.NoError(t, err)
	assert.Equal(t, PlaintextOutput, f)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}

func TestConfigureWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "twopc.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.OutputFile = file
	require.NoError(t, Configure(cfg))
	defer func() {
		require.NoError(t, Configure(DefaultConfig()))
	}()

	GetLogger("file-test").Infof("hello %s", "file")
	_ = Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello file"))
	assert.True(t, strings.Contains(string(data), "\"logger\":\"file-test\""))
}
