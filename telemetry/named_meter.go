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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type NamedMeter struct {
	namespace     string
	registry      *prometheus.Registry
	recorderMutex sync.Mutex
	recorders     map[string]interface{}
}

func (m *NamedMeter) getOrPutRecorder(name string, factory func() interface{}) interface{} {
	m.recorderMutex.Lock()
	defer m.recorderMutex.Unlock()
	r, ok := m.recorders[name]
	if !ok {
		r = factory()
		m.recorders[name] = r
	}
	return r
}

func (m *NamedMeter) fullName(name string) string {
	return BuildMetricName(m.namespace, name)
}

func (m *NamedMeter) NewCounter(name, desc string, labels ...string) *prometheus.CounterVec {
	fac := func() interface{} {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: m.fullName(name), Help: desc}, labels)
		m.registry.MustRegister(c)
		return c
	}
	return m.getOrPutRecorder(name, fac).(*prometheus.CounterVec)
}

func (m *NamedMeter) NewGauge(name, desc string, labels ...string) *prometheus.GaugeVec {
	fac := func() interface{} {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: m.fullName(name), Help: desc}, labels)
		m.registry.MustRegister(g)
		return g
	}
	return m.getOrPutRecorder(name, fac).(*prometheus.GaugeVec)
}

func (m *NamedMeter) NewDurationValueRecorder(name, desc string, labels ...string) DurationValueRecorder {
	fac := func() interface{} {
		return NewDurationValueRecorder(m.registry, m.fullName(name), desc, labels...)
	}
	return m.getOrPutRecorder(name, fac).(DurationValueRecorder)
}

func (m *NamedMeter) NewDurationCounter(name, desc string, labels ...string) DurationCounter {
	fac := func() interface{} {
		return NewDurationCounter(m.registry, m.fullName(name), desc, labels...)
	}
	return m.getOrPutRecorder(name, fac).(DurationCounter)
}
