/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

const (
	half    = 100 * time.Millisecond
	quarter = 50 * time.Millisecond
	tenth   = 20 * time.Millisecond
)

var numcalls atomic.Int64

func f() {
	numcalls.Inc()
}

func TestWait(t *testing.T) {
	numcalls.Store(0)
	timer := NewTimer(quarter)
	assert.False(t, timer.Running())
	timer.Start(f)
	defer timer.Stop()
	assert.True(t, timer.Running())
	time.Sleep(tenth)
	assert.Equal(t, int64(0), numcalls.Load())
	time.Sleep(quarter)
	assert.Equal(t, int64(1), numcalls.Load())
	time.Sleep(quarter)
	assert.Equal(t, int64(2), numcalls.Load())
}

func TestReset(t *testing.T) {
	numcalls.Store(0)
	timer := NewTimer(half)
	timer.Start(f)
	defer timer.Stop()
	timer.SetInterval(quarter)
	time.Sleep(tenth)
	assert.Equal(t, int64(0), numcalls.Load())
	time.Sleep(quarter)
	assert.Equal(t, int64(1), numcalls.Load())
}

func TestTrigger(t *testing.T) {
	numcalls.Store(0)
	timer := NewTimer(half)
	timer.Start(f)
	defer timer.Stop()
	time.Sleep(quarter)
	assert.Equal(t, int64(0), numcalls.Load())
	timer.Trigger()
	time.Sleep(tenth)
	assert.Equal(t, int64(1), numcalls.Load())
}

func TestStop(t *testing.T) {
	numcalls.Store(0)
	timer := NewTimer(half)
	timer.Start(f)
	time.Sleep(tenth)
	timer.Stop()
	assert.Equal(t, int64(0), numcalls.Load())
	timer.Start(f)
	time.Sleep(tenth)
	assert.True(t, timer.Running())
	timer.Stop()
	assert.False(t, timer.Running())
}
