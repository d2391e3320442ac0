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

package testkit

import (
	"fmt"

	"github.com/emirpasic/gods/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func errorDifferent(excepted []interface{}, actual []interface{}) string {
	sb := newStringBuilder()
	sb.WriteLine("array not same")

	sb.Write("excepted: ")
	utils.Sort(excepted, compareText)
	writeArray(sb, excepted)
	sb.WriteLine()

	sb.Write("actual: ")
	utils.Sort(actual, compareText)
	writeArray(sb, actual)
	sb.WriteLine()

	return sb.String()
}

func compareText(a, b interface{}) int {
	return utils.StringComparator(fmt.Sprint(a), fmt.Sprint(b))
}

func writeArray(sb *stringBuilder, values []interface{}) {
	if len(values) == 0 {
		sb.Write("<empty array>")
		return
	}
	for i, e := range values {
		if i == len(values)-1 {
			sb.Write(fmt.Sprint(e))
		} else {
			sb.Write(fmt.Sprint(e) + ", ")
		}
	}
}

// AssertSameIDs checks both slices hold the same transaction ids, in any order.
func AssertSameIDs(t assert.TestingT, excepted []uuid.UUID, actual []uuid.UUID, msgAndArgs ...interface{}) bool {
	e := make([]interface{}, len(excepted))
	for i, id := range excepted {
		e[i] = id
	}
	a := make([]interface{}, len(actual))
	for i, id := range actual {
		a[i] = id
	}
	return AssertArrayEquals(t, e, a, msgAndArgs...)
}

func AssertStrArrayEquals(t assert.TestingT, excepted []string, actual []string, msgAndArgs ...interface{}) bool {
	return AssertArrayEquals(t, convertStrArray(excepted), convertStrArray(actual), msgAndArgs...)
}

// AssertArrayEquals ignores order, duplicates count.
func AssertArrayEquals(t assert.TestingT, excepted []interface{}, actual []interface{}, msgAndArgs ...interface{}) bool {
	if len(excepted) != len(actual) {
		return assert.Fail(t, errorDifferent(excepted, actual), msgAndArgs...)
	}
	left := append([]interface{}(nil), actual...)
	for _, r := range excepted {
		i := indexOf(left, r)
		if i < 0 {
			return assert.Fail(t, errorDifferent(excepted, actual), msgAndArgs...)
		}
		left = append(left[:i], left[i+1:]...)
	}
	return true
}

func convertStrArray(values []string) []interface{} {
	r := make([]interface{}, len(values))
	for i, value := range values {
		r[i] = value
	}
	return r
}

func indexOf(values []interface{}, value interface{}) int {
	for i, r := range values {
		if r == value {
			return i
		}
	}
	return -1
}
