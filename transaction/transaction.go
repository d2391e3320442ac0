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
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const lockPollInterval = 10 * time.Millisecond

type action func() (interface{}, error)

// record is the node side view shared by participant and coordinator transactions.
type record interface {
	state() *transaction
	logEntry() *LogEntry
	// open acquires what the transaction needs once it is registered.
	open() error
	// close releases what the transaction holds once it is forgotten.
	close()
}

// transaction carries the fields and the busy lock common to both node kinds.
type transaction struct {
	id           uuid.UUID
	sessionToken string
	status       atomic.Int32
	// unix nanoseconds, zero for transactions recovered from the log
	lastAccessed atomic.Int64
	busy         atomic.Bool
	// run executes an action on behalf of the transaction, see Participant workers.
	run func(action) (interface{}, error)
}

func newTransaction(id uuid.UUID, sessionToken string) *transaction {
	t := &transaction{id: id, sessionToken: sessionToken}
	t.status.Store(int32(StatusNew))
	t.touch()
	t.run = func(a action) (interface{}, error) { return a() }
	return t
}

func (t *transaction) Status() Status {
	return Status(t.status.Load())
}

func (t *transaction) setStatus(s Status) {
	t.status.Store(int32(s))
}

func (t *transaction) touch() {
	t.lastAccessed.Store(time.Now().UnixNano())
}

func (t *transaction) LastAccessedDate() time.Time {
	return time.Unix(0, t.lastAccessed.Load())
}

func (t *transaction) tryLock() bool {
	return t.busy.CAS(false, true)
}

func (t *transaction) unlock() {
	t.busy.Store(false)
}

func (t *transaction) isBusy() bool {
	return t.busy.Load()
}

func (t *transaction) busyError() error {
	return userFailure("Cannot execute a new action on transaction '%s' as it is still busy executing a previous action.", t.id)
}

// withoutLock runs a when nobody holds the lock, without taking it.
func (t *transaction) withoutLock(touch bool, a action) (interface{}, error) {
	if touch {
		t.touch()
		defer t.touch()
	}
	if t.isBusy() {
		return nil, t.busyError()
	}
	return t.run(a)
}

func (t *transaction) lockOrFail(touch bool, a action) error {
	if !t.tryLock() {
		return t.busyError()
	}
	return t.locked(touch, a)
}

// lockOrSkip reports false when the transaction was busy and a did not run.
func (t *transaction) lockOrSkip(touch bool, a action) (bool, error) {
	if !t.tryLock() {
		log.Infof("Cannot execute a new action on transaction '%s' as it is still busy executing a previous action.", t.id)
		return false, nil
	}
	return true, t.locked(touch, a)
}

func (t *transaction) lockOrWait(ctx context.Context, timeout time.Duration, touch bool, a action) error {
	since := time.Now()
	deadline := since.Add(timeout)
	for !t.tryLock() {
		if !time.Now().Before(deadline) {
			TxStats.RecordLockWait(since, false)
			return t.waitedError(since)
		}
		select {
		case <-ctx.Done():
			TxStats.RecordLockWait(since, false)
			return t.waitedError(since)
		case <-time.After(lockPollInterval):
		}
	}
	TxStats.RecordLockWait(since, true)
	return t.locked(touch, a)
}

func (t *transaction) waitedError(since time.Time) error {
	return userFailure("Cannot execute a new action on transaction '%s' as it is still busy executing a previous action. Waited since '%s'.",
		t.id, since.Format(time.RFC3339))
}

func (t *transaction) locked(touch bool, a action) error {
	if touch {
		t.touch()
	}
	defer func() {
		if touch {
			t.touch()
		}
		t.unlock()
	}()
	_, err := t.run(a)
	return err
}

// TransactionInfo is a point in time copy of what a node knows about a transaction.
type TransactionInfo struct {
	ID               uuid.UUID `json:"transactionId"`
	SessionToken     string    `json:"-"`
	Status           Status    `json:"transactionStatus"`
	TwoPhase         bool      `json:"twoPhaseTransaction"`
	ParticipantIDs   []string  `json:"participantIds,omitempty"`
	LastAccessedDate time.Time `json:"lastAccessedDate"`
	Busy             bool      `json:"busy"`
}

func (t *transaction) info() *TransactionInfo {
	return &TransactionInfo{
		ID:               t.id,
		SessionToken:     t.sessionToken,
		Status:           t.Status(),
		LastAccessedDate: t.LastAccessedDate(),
		Busy:             t.isBusy(),
	}
}
