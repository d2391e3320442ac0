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
	"fmt"
	"strings"
)

// Status is the persisted lifecycle position of a transaction on one node.
type Status int32

const (
	StatusNew Status = iota
	StatusBeginStarted
	StatusBeginFinished
	StatusPrepareStarted
	StatusPrepareFinished
	StatusCommitStarted
	StatusCommitFinished
	StatusRollbackStarted
	StatusRollbackFinished
)

var StatusNames = map[Status]string{
	StatusNew:              "NEW",
	StatusBeginStarted:     "BEGIN_STARTED",
	StatusBeginFinished:    "BEGIN_FINISHED",
	StatusPrepareStarted:   "PREPARE_STARTED",
	StatusPrepareFinished:  "PREPARE_FINISHED",
	StatusCommitStarted:    "COMMIT_STARTED",
	StatusCommitFinished:   "COMMIT_FINISHED",
	StatusRollbackStarted:  "ROLLBACK_STARTED",
	StatusRollbackFinished: "ROLLBACK_FINISHED",
}

var StatusValues = map[string]Status{
	"NEW":               StatusNew,
	"BEGIN_STARTED":     StatusBeginStarted,
	"BEGIN_FINISHED":    StatusBeginFinished,
	"PREPARE_STARTED":   StatusPrepareStarted,
	"PREPARE_FINISHED":  StatusPrepareFinished,
	"COMMIT_STARTED":    StatusCommitStarted,
	"COMMIT_FINISHED":   StatusCommitFinished,
	"ROLLBACK_STARTED":  StatusRollbackStarted,
	"ROLLBACK_FINISHED": StatusRollbackFinished,
}

func (s Status) String() string {
	if n, ok := StatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", int32(s))
}

// IsFinished reports whether nothing is left to do for the transaction.
func (s Status) IsFinished() bool {
	return s == StatusCommitFinished || s == StatusRollbackFinished
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := StatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown transaction status %d", int32(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, ok := StatusValues[strings.ToUpper(string(text))]
	if !ok {
		return fmt.Errorf("unknown transaction status '%s'", string(text))
	}
	*s = v
	return nil
}

// formatStatuses renders statuses the way error messages list them: [A, B].
func formatStatuses(statuses []Status) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
