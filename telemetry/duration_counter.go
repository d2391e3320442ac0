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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DurationCounter accumulates time spent, exported in seconds.
type DurationCounter struct {
	counter *prometheus.CounterVec
}

func NewDurationCounter(registerer prometheus.Registerer, name, desc string, labels ...string) DurationCounter {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name + "_seconds_total",
		Help: desc,
	}, labels)
	registerer.MustRegister(c)
	return DurationCounter{counter: c}
}

func (d DurationCounter) Add(duration time.Duration, labels ...string) {
	d.counter.WithLabelValues(labels...).Add(duration.Seconds())
}
