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
package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMetricName(t *testing.T) {
	var name string
	name = BuildMetricName("a_")
	assert.Equal(t, "a", name)

	name = BuildMetricName("_-a._")
	assert.Equal(t, "a", name)

	name = BuildMetricName("db", "A")
	assert.Equal(t, "db_a", name)

	name = BuildMetricName("db", "AbcEdf")
	assert.Equal(t, "db_abc_edf", name)

	name = BuildMetricName("db", "...AbcEdf...")
	assert.Equal(t, "db_abc_edf", name)

	name = BuildMetricName("transaction.coordinator", "commitFailed")
	assert.Equal(t, "transaction_coordinator_commit_failed", name)
}

func TestNamedMeterReusesCollectors(t *testing.T) {
	Reset()
	m := GetMeter("meter-test")
	assert.True(t, m == GetMeter("meter-test"))

	c1 := m.NewCounter("Calls", "calls", "phase")
	c2 := m.NewCounter("Calls", "calls", "phase")
	assert.True(t, c1 == c2)

	c1.WithLabelValues("begin").Inc()
	c2.WithLabelValues("begin").Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(c1.WithLabelValues("begin")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	Reset()
	m := GetMeter("handler-test")
	m.NewGauge("Live", "live things").WithLabelValues().Set(3)
	d := m.NewDurationValueRecorder("CallLatency", "latency", "operation")
	d.Record(20*time.Millisecond, "commit")
	dc := m.NewDurationCounter("Busy", "busy time")
	dc.Add(time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, "handler_test_live 3"))
	assert.True(t, strings.Contains(body, "handler_test_call_latency_seconds_count{operation=\"commit\"} 1"))
	assert.True(t, strings.Contains(body, "handler_test_busy_seconds_total 1"))
}
