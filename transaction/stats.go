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
	"time"

	"github.com/endink/go-twopc/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

type Stats struct {
	StatusChanges  *prometheus.CounterVec
	Failures       *prometheus.CounterVec
	InternalErrors *prometheus.CounterVec
	Live           *prometheus.GaugeVec
	Resolved       *prometheus.CounterVec
	CallLatency    telemetry.DurationValueRecorder
	LockWait       telemetry.DurationCounter
}

func (s *Stats) AddInternalErrors(node string, errorType string) {
	s.InternalErrors.WithLabelValues(node, errorType).Inc()
}

func (s *Stats) RecordStatus(node string, status Status) {
	s.StatusChanges.WithLabelValues(node, status.String()).Inc()
}

func (s *Stats) RecordFailure(node string, call string, err error) {
	s.Failures.WithLabelValues(node, call, kindLabel(err)).Inc()
}

func (s *Stats) RecordResolved(node string, via string) {
	s.Resolved.WithLabelValues(node, via).Inc()
}

func (s *Stats) SetLive(node string, count int) {
	s.Live.WithLabelValues(node).Set(float64(count))
}

func (s *Stats) RecordLatency(node string, call string, start time.Time) {
	s.CallLatency.RecordLatency(start, node, call)
}

// RecordLockWait accumulates the time recovered calls spent waiting for a busy transaction.
func (s *Stats) RecordLockWait(since time.Time, acquired bool) {
	outcome := "acquired"
	if !acquired {
		outcome = "gave_up"
	}
	s.LockWait.Add(time.Since(since), outcome)
}

func kindLabel(err error) string {
	k := kindOf(err)
	if k < 0 {
		return KindInternal.String()
	}
	return k.String()
}

var TxMeter = telemetry.GetMeter("transaction")

var TxStats = &Stats{
	StatusChanges:  TxMeter.NewCounter("status_changes_total", "Transaction status changes written to the log", "node", "status"),
	Failures:       TxMeter.NewCounter("failures_total", "Failed node calls by kind", "node", "call", "kind"),
	InternalErrors: TxMeter.NewCounter("internal_errors_total", "Internal component errors", "node", "type"),
	Live:           TxMeter.NewGauge("live", "Transactions currently known by a node", "node"),
	Resolved:       TxMeter.NewCounter("resolved_total", "Transactions finished by recovery or the abandonment sweep", "node", "via"),
	CallLatency:    TxMeter.NewDurationValueRecorder("call_latency", "Latency of node calls", "node", "call"),
	LockWait:       TxMeter.NewDurationCounter("lock_wait", "Time spent waiting for busy transactions", "outcome"),
}
