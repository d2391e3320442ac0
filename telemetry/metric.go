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
	"errors"
	"strings"
	"sync"
	"unicode"
)

var meterMap = make(map[string]*NamedMeter)
var meterMutex sync.Mutex

func GetMeter(instrumentationName string) *NamedMeter {
	meterMutex.Lock()
	defer meterMutex.Unlock()
	if m, ok := meterMap[instrumentationName]; ok {
		return m
	}
	nm := &NamedMeter{
		namespace: BuildMetricName(instrumentationName),
		registry:  Registry(),
		recorders: make(map[string]interface{}),
	}
	meterMap[instrumentationName] = nm
	return nm
}

// BuildMetricName joins the statements into one snake_case prometheus name.
// Camel case humps become underscores, anything outside [a-z0-9] separates words.
func BuildMetricName(statement ...string) string {
	if len(statement) == 0 {
		panic(errors.New("name for 'BuildMetricName' can not be nil or empty"))
	}

	array := make([]string, 0, len(statement))
	for _, s := range statement {
		if part := snakeCase(s); part != "" {
			array = append(array, part)
		}
	}
	return strings.Join(array, "_")
}

func snakeCase(s string) string {
	sb := &strings.Builder{}
	prevLower := false
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				pendingSep = true
			}
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower = false
			pendingSep = false
		case unicode.IsLower(r) || unicode.IsDigit(r):
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
			prevLower = true
			pendingSep = false
		default:
			pendingSep = true
			prevLower = false
		}
	}
	return sb.String()
}
