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

	"github.com/google/uuid"
)

// LogEntry is the durable record of one transaction kept by a node.
// ParticipantIDs is only filled by the coordinator and holds the participants
// that joined the transaction, in the order they were first used.
type LogEntry struct {
	TransactionID       uuid.UUID `json:"transactionId"`
	TwoPhaseTransaction bool      `json:"twoPhaseTransaction"`
	ParticipantIDs      []string  `json:"participantIds,omitempty"`
	TransactionStatus   Status    `json:"transactionStatus"`
	LastAccessedDate    time.Time `json:"lastAccessedDate"`
}

func (e *LogEntry) Clone() *LogEntry {
	c := *e
	if e.ParticipantIDs != nil {
		c.ParticipantIDs = append([]string(nil), e.ParticipantIDs...)
	}
	return &c
}
