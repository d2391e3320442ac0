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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Coordinator drives distributed transactions across a fixed, ordered list of
// participants. Participants join a transaction lazily on their first operation.
type Coordinator struct {
	*node
	participants []TransactionParticipant
	byID         map[string]TransactionParticipant
	closed       atomic.Bool
}

const coordinatorName = "coordinator"

func NewCoordinator(cfg Config, participants []TransactionParticipant) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, errors.New("Participants cannot be null or empty")
	}
	byID := make(map[string]TransactionParticipant, len(participants))
	for _, p := range participants {
		if p == nil {
			return nil, errors.New("Participants cannot contain null")
		}
		if _, dup := byID[p.ParticipantID()]; dup {
			return nil, fmt.Errorf("Duplicate participant with id '%s'", p.ParticipantID())
		}
		byID[p.ParticipantID()] = p
	}
	return &Coordinator{
		node:         newNode(coordinatorName, true, cfg),
		participants: participants,
		byID:         byID,
	}, nil
}

type coordinatorTransaction struct {
	*transaction
	mu     sync.Mutex
	joined *linkedhashset.Set
	// serializes lazy participant begins of concurrent operations
	joinMu sync.Mutex
}

func newCoordinatorTransaction(id uuid.UUID, sessionToken string, participantIDs ...string) *coordinatorTransaction {
	ct := &coordinatorTransaction{
		transaction: newTransaction(id, sessionToken),
		joined:      linkedhashset.New(),
	}
	for _, pid := range participantIDs {
		ct.joined.Add(pid)
	}
	return ct
}

func (ct *coordinatorTransaction) state() *transaction { return ct.transaction }
func (ct *coordinatorTransaction) open() error         { return nil }
func (ct *coordinatorTransaction) close()              {}

func (ct *coordinatorTransaction) logEntry() *LogEntry {
	return &LogEntry{
		TransactionID:       ct.id,
		TwoPhaseTransaction: true,
		ParticipantIDs:      ct.participantIDs(),
		TransactionStatus:   ct.Status(),
		LastAccessedDate:    ct.LastAccessedDate(),
	}
}

// participantIDs returns the joined participants in first-use order.
func (ct *coordinatorTransaction) participantIDs() []string {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ids := make([]string, 0, ct.joined.Size())
	for _, v := range ct.joined.Values() {
		ids = append(ids, v.(string))
	}
	return ids
}

func (ct *coordinatorTransaction) hasJoined(participantID string) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.joined.Contains(participantID)
}

func (ct *coordinatorTransaction) join(participantID string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.joined.Add(participantID)
}

func (ct *coordinatorTransaction) setParticipantIDs(ids []string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.joined.Clear()
	for _, id := range ids {
		ct.joined.Add(id)
	}
}

func (c *Coordinator) lookup(id uuid.UUID) *coordinatorTransaction {
	if r := c.get(id); r != nil {
		return r.(*coordinatorTransaction)
	}
	return nil
}

func (c *Coordinator) checkParticipantID(participantID string) (TransactionParticipant, error) {
	if participantID == "" {
		return nil, userFailure("Participant id cannot be null")
	}
	p, ok := c.byID[participantID]
	if !ok {
		return nil, userFailure("Unknown participant with id '%s'", participantID)
	}
	return p, nil
}

// joinedParticipants returns the configured participants that took part in ct, in configured order.
func (c *Coordinator) joinedParticipants(ct *coordinatorTransaction, action string) []TransactionParticipant {
	var joined []TransactionParticipant
	for _, p := range c.participants {
		if !ct.hasJoined(p.ParticipantID()) {
			log.Debugf("Skipping %s of transaction '%s' for participant '%s' as no operations were executed on that participant.",
				action, ct.id, p.ParticipantID())
			continue
		}
		joined = append(joined, p)
	}
	return joined
}

func (c *Coordinator) BeginTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	defer TxStats.RecordLatency(c.name, "begin", time.Now())
	err := func() error {
		if err := c.checkTransactionID(id); err != nil {
			return err
		}
		if err := c.checkSessionToken(sessionToken); err != nil {
			return err
		}
		if err := c.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}
		if c.closed.Load() {
			return errors.New("coordinator is closed")
		}

		ct := newCoordinatorTransaction(id, sessionToken)
		if err := c.register(ct); err != nil {
			return err
		}

		return ct.lockOrFail(true, func() (interface{}, error) {
			err := c.changeStatus(ct, StatusBeginStarted)
			if err == nil {
				log.Infof("Begin transaction '%s'.", id)
				err = c.changeStatus(ct, StatusBeginFinished)
			}
			if err != nil {
				if deleteErr := c.txLog.DeleteTransaction(id); deleteErr != nil {
					log.Warnf("Could not delete transaction '%s'. %v", id, deleteErr)
				}
				c.forget(ct)
				return nil, err
			}
			return nil, nil
		})
	}()
	if err != nil {
		return c.fail("begin", err, "Begin transaction '%s' failed.", id)
	}
	return nil
}

func (c *Coordinator) ExecuteOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
	participantID string, operationName string, operationArguments []interface{}) (interface{}, error) {
	defer TxStats.RecordLatency(c.name, "execute", time.Now())
	msg := fmt.Sprintf("Transaction '%s' execute operation '%s' for participant '%s' failed.", id, operationName, participantID)
	result, err := c.executeOperation(ctx, id, sessionToken, interactiveSessionKey, participantID, operationName, operationArguments, msg)
	if err != nil {
		return nil, c.fail("execute", err, "%s", msg)
	}
	return result, nil
}

func (c *Coordinator) executeOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
	participantID string, operationName string, operationArguments []interface{}, msg string) (interface{}, error) {
	if err := c.checkTransactionID(id); err != nil {
		return nil, err
	}
	if err := c.checkSessionToken(sessionToken); err != nil {
		return nil, err
	}
	if err := c.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
		return nil, err
	}
	participant, err := c.checkParticipantID(participantID)
	if err != nil {
		return nil, err
	}
	if err := c.checkOperationName(operationName); err != nil {
		return nil, err
	}
	if err := c.checkOperationArguments(operationArguments); err != nil {
		return nil, err
	}

	ct := c.lookup(id)
	if ct == nil {
		return nil, userFailure("Transaction '%s' does not exist.", id)
	}

	return ct.withoutLock(true, func() (interface{}, error) {
		if err := c.checkAccess(ct.transaction, sessionToken); err != nil {
			return nil, err
		}
		if err := c.checkStatus(ct.transaction, StatusBeginFinished); err != nil {
			return nil, err
		}

		log.Infof("Transaction '%s' execute operation '%s' for participant '%s' started.", id, operationName, participantID)

		if err := c.joinParticipant(ctx, ct, participant, sessionToken, interactiveSessionKey); err != nil {
			return nil, internalFailure(err, "%s", msg)
		}

		// a failed operation does not roll back, the client decides or the transaction times out
		result, err := participant.ExecuteOperation(ctx, id, sessionToken, interactiveSessionKey, operationName, operationArguments)
		if err != nil {
			kind := kindOf(err)
			if kind < 0 {
				kind = KindInternal
			}
			return nil, newError(kind, err, "%s", msg)
		}

		log.Infof("Transaction '%s' execute operation '%s' for participant '%s' finished successfully.", id, operationName, participantID)
		return result, nil
	})
}

func (c *Coordinator) joinParticipant(ctx context.Context, ct *coordinatorTransaction, participant TransactionParticipant,
	sessionToken, interactiveSessionKey string) error {
	pid := participant.ParticipantID()
	if ct.hasJoined(pid) {
		return nil
	}

	ct.joinMu.Lock()
	defer ct.joinMu.Unlock()
	if ct.hasJoined(pid) {
		return nil
	}

	log.Infof("Begin transaction '%s' for participant '%s'.", ct.id, pid)

	err := participant.BeginTransaction(ctx, ct.id, sessionToken, interactiveSessionKey, c.cfg.CoordinatorKey)
	if err == nil {
		ct.join(pid)
		if err = c.changeStatus(ct, StatusBeginFinished); err != nil {
			ct.setParticipantIDs(removeID(ct.participantIDs(), pid))
			// nothing logged names the participant, its transaction must not wait for the timeout
			if rollbackErr := participant.RollbackTransaction(ctx, ct.id, sessionToken, interactiveSessionKey); rollbackErr != nil {
				log.Warnf("Rollback transaction '%s' for participant '%s' failed. %v", ct.id, pid, rollbackErr)
			}
		}
	}
	if err != nil {
		return internalFailure(err, "Begin transaction '%s' failed for participant '%s'.", ct.id, pid)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (c *Coordinator) CommitTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	defer TxStats.RecordLatency(c.name, "commit", time.Now())
	var retry bool
	err := func() error {
		if err := c.checkTransactionID(id); err != nil {
			return err
		}
		if err := c.checkSessionToken(sessionToken); err != nil {
			return err
		}
		if err := c.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}

		ct := c.lookup(id)
		if ct == nil {
			return userFailure("Transaction '%s' does not exist.", id)
		}

		return ct.lockOrFail(true, func() (interface{}, error) {
			if err := c.checkAccess(ct.transaction, sessionToken); err != nil {
				return nil, err
			}
			if err := c.checkStatus(ct.transaction, StatusBeginFinished); err != nil {
				return nil, err
			}

			log.Infof("Commit transaction '%s' started.", id)

			if err := c.prepare(ctx, ct, sessionToken, interactiveSessionKey); err != nil {
				return nil, err
			}

			// once every participant voted the outcome is decided, failures are retried by the sweep
			if err := c.commitPrepared(ctx, ct, sessionToken, interactiveSessionKey); err != nil {
				TxStats.AddInternalErrors(c.name, "CommitFail")
				log.Errorf("Commit transaction '%s' failed. It will be automatically retried by the coordinator. %v", id, err)
				retry = true
				return nil, nil
			}

			log.Infof("Commit transaction '%s' finished successfully.", id)
			return nil, nil
		})
	}()
	if err != nil {
		return c.fail("commit", err, "Commit transaction '%s' failed.", id)
	}
	if retry {
		go c.triggerWatchdog()
	}
	return nil
}

func (c *Coordinator) prepare(ctx context.Context, ct *coordinatorTransaction, sessionToken, interactiveSessionKey string) error {
	log.Infof("Prepare transaction '%s' started.", ct.id)

	if err := c.changeStatus(ct, StatusPrepareStarted); err != nil {
		return err
	}

	for _, p := range c.joinedParticipants(ct, "prepare") {
		log.Infof("Prepare transaction '%s' for participant '%s'.", ct.id, p.ParticipantID())
		if err := p.PrepareTransaction(ctx, ct.id, sessionToken, interactiveSessionKey, c.cfg.CoordinatorKey); err != nil {
			if rollbackErr := c.rollback(ctx, ct, sessionToken, interactiveSessionKey, false); rollbackErr != nil {
				log.Warnf("Rollback transaction '%s' failed. %v", ct.id, rollbackErr)
			}
			return internalFailure(err, "Prepare transaction '%s' failed for participant '%s'. The transaction was rolled back.",
				ct.id, p.ParticipantID())
		}
	}

	if err := c.changeStatus(ct, StatusPrepareFinished); err != nil {
		return err
	}

	log.Infof("Prepare transaction '%s' finished successfully.", ct.id)
	return nil
}

func (c *Coordinator) commitPrepared(ctx context.Context, ct *coordinatorTransaction, sessionToken, interactiveSessionKey string) error {
	log.Infof("Commit prepared transaction '%s' started.", ct.id)

	if err := c.changeStatus(ct, StatusCommitStarted); err != nil {
		return err
	}

	var first error
	for _, p := range c.joinedParticipants(ct, "commit") {
		log.Infof("Commit prepared transaction '%s' for participant '%s'.", ct.id, p.ParticipantID())
		if err := p.CommitTransaction(ctx, ct.id, sessionToken, interactiveSessionKey); err != nil && first == nil {
			first = internalFailure(err, "Commit prepared transaction '%s' failed for participant '%s'.", ct.id, p.ParticipantID())
		}
	}
	if first != nil {
		return first
	}

	if err := c.changeStatus(ct, StatusCommitFinished); err != nil {
		return err
	}
	log.Infof("Commit prepared transaction '%s' finished successfully.", ct.id)
	return nil
}

// commitRecovered asks every configured participant which transactions wait
// for a commit. Participants that no longer list the transaction committed it
// already, the stored set is corrected accordingly.
func (c *Coordinator) commitRecovered(ctx context.Context, ct *coordinatorTransaction) error {
	log.Infof("Commit prepared transaction '%s' started.", ct.id)

	var errs error
	var pending []TransactionParticipant
	responders := make(map[string]bool)
	for _, p := range c.participants {
		pid := p.ParticipantID()
		ids, err := p.RecoverTransactions(ctx, c.cfg.InteractiveSessionKey, c.cfg.CoordinatorKey)
		if err != nil {
			// unreachable participants keep their place, the next sweep asks again
			if ct.hasJoined(pid) {
				responders[pid] = true
			}
			errs = multierr.Append(errs, internalFailure(err, "Commit prepared transaction '%s' failed for participant '%s'.", ct.id, pid))
			continue
		}
		if containsID(ids, ct.id) {
			responders[pid] = true
			pending = append(pending, p)
		} else if ct.hasJoined(pid) {
			log.Infof("Skipping commit of prepared transaction '%s' for participant '%s'. The transaction has been already committed at that participant before.",
				ct.id, pid)
		}
	}

	var corrected []string
	for _, pid := range ct.participantIDs() {
		if responders[pid] {
			corrected = append(corrected, pid)
			delete(responders, pid)
		}
	}
	for _, p := range c.participants {
		if responders[p.ParticipantID()] {
			corrected = append(corrected, p.ParticipantID())
		}
	}
	ct.setParticipantIDs(corrected)

	if err := c.changeStatus(ct, StatusCommitStarted); err != nil {
		return multierr.Append(errs, err)
	}

	for _, p := range pending {
		log.Infof("Commit prepared transaction '%s' for participant '%s'.", ct.id, p.ParticipantID())
		if err := p.CommitRecoveredTransaction(ctx, ct.id, c.cfg.InteractiveSessionKey, c.cfg.CoordinatorKey); err != nil {
			errs = multierr.Append(errs, internalFailure(err, "Commit prepared transaction '%s' failed for participant '%s'.", ct.id, p.ParticipantID()))
		}
	}
	if errs != nil {
		return errs
	}

	if err := c.changeStatus(ct, StatusCommitFinished); err != nil {
		return err
	}
	log.Infof("Commit prepared transaction '%s' finished successfully.", ct.id)
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (c *Coordinator) RollbackTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	defer TxStats.RecordLatency(c.name, "rollback", time.Now())
	err := func() error {
		if err := c.checkTransactionID(id); err != nil {
			return err
		}
		if err := c.checkSessionToken(sessionToken); err != nil {
			return err
		}
		if err := c.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}

		ct := c.lookup(id)
		if ct == nil {
			return nil
		}

		return ct.lockOrFail(true, func() (interface{}, error) {
			if err := c.checkAccess(ct.transaction, sessionToken); err != nil {
				return nil, err
			}
			if err := c.checkStatus(ct.transaction, StatusBeginStarted, StatusBeginFinished, StatusPrepareStarted,
				StatusPrepareFinished, StatusRollbackStarted, StatusRollbackFinished); err != nil {
				return nil, err
			}
			if err := c.rollback(ctx, ct, sessionToken, interactiveSessionKey, false); err != nil {
				TxStats.AddInternalErrors(c.name, "RollbackFail")
				log.Errorf("Rollback transaction '%s' failed. It will be automatically retried by the coordinator. %v", id, err)
			}
			return nil, nil
		})
	}()
	if err != nil {
		return c.fail("rollback", err, "Rollback transaction '%s' failed.", id)
	}
	return nil
}

func (c *Coordinator) rollback(ctx context.Context, ct *coordinatorTransaction, sessionToken, interactiveSessionKey string, recovery bool) error {
	if ct.Status() == StatusRollbackFinished {
		return nil
	}

	log.Infof("Rollback transaction '%s' started.", ct.id)

	if err := c.changeStatus(ct, StatusRollbackStarted); err != nil {
		return err
	}

	var errs error
	for _, p := range c.joinedParticipants(ct, "rollback") {
		log.Infof("Rollback transaction '%s' for participant '%s'.", ct.id, p.ParticipantID())
		var err error
		if recovery {
			err = p.RollbackRecoveredTransaction(ctx, ct.id, c.cfg.InteractiveSessionKey, c.cfg.CoordinatorKey)
		} else {
			err = p.RollbackTransaction(ctx, ct.id, sessionToken, interactiveSessionKey)
		}
		if err != nil {
			errs = multierr.Append(errs, internalFailure(err, "Rollback transaction '%s' failed for participant '%s'.", ct.id, p.ParticipantID()))
		}
	}
	if errs != nil {
		return errs
	}

	if err := c.changeStatus(ct, StatusRollbackFinished); err != nil {
		return err
	}
	log.Infof("Rollback transaction '%s' finished successfully.", ct.id)
	return nil
}

func (c *Coordinator) viaCommit(ctx context.Context, r record) error {
	return c.commitRecovered(ctx, r.(*coordinatorTransaction))
}

func (c *Coordinator) viaRollback(ctx context.Context, r record) error {
	return c.rollback(ctx, r.(*coordinatorTransaction), "", c.cfg.InteractiveSessionKey, true)
}

// RecoverTransactionsFromTransactionLog loads the unfinished transactions of the
// log and resolves them right away. Transactions that cannot be resolved yet stay
// registered for FinishFailedOrAbandonedTransactions.
func (c *Coordinator) RecoverTransactionsFromTransactionLog(ctx context.Context) error {
	recovered, err := c.loadLog(func(entry *LogEntry) record {
		ct := newCoordinatorTransaction(entry.TransactionID, "", entry.ParticipantIDs...)
		ct.setStatus(entry.TransactionStatus)
		ct.lastAccessed.Store(0)
		return ct
	})

	for _, r := range recovered {
		ct := r.(*coordinatorTransaction)
		status := ct.Status()
		var resolveErr error
		switch status {
		case StatusBeginStarted, StatusBeginFinished, StatusPrepareStarted, StatusRollbackStarted:
			resolveErr = c.resolve(ctx, ct, "rollback", c.viaRollback)
		case StatusPrepareFinished, StatusCommitStarted:
			resolveErr = c.resolve(ctx, ct, "commit", c.viaCommit)
		}
		if resolveErr != nil {
			TxStats.AddInternalErrors(c.name, "RecoveryFail")
			log.Warnf("Recovered transaction '%s' with last status '%s' could not be finished yet, it will be retried. %v",
				ct.id, status, resolveErr)
		}
	}
	return err
}

func (c *Coordinator) FinishFailedOrAbandonedTransactions(ctx context.Context) {
	c.sweep(ctx, c.viaCommit, c.viaRollback)
}

// GetTransaction returns a copy of the transaction state, nil when the id is unknown.
func (c *Coordinator) GetTransaction(id uuid.UUID) *TransactionInfo {
	ct := c.lookup(id)
	if ct == nil {
		return nil
	}
	info := ct.info()
	info.TwoPhase = true
	info.ParticipantIDs = ct.participantIDs()
	return info
}

func (c *Coordinator) Transactions() []*TransactionInfo {
	records := c.snapshot()
	infos := make([]*TransactionInfo, 0, len(records))
	for _, r := range records {
		if info := c.GetTransaction(r.state().id); info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}

// Participants returns the configured participants in order.
func (c *Coordinator) Participants() []TransactionParticipant {
	return append([]TransactionParticipant(nil), c.participants...)
}

func (c *Coordinator) StartWatchdog(interval time.Duration) {
	c.startWatchdog(interval, c.FinishFailedOrAbandonedTransactions)
}

// Close stops the watchdog and rolls back transactions that were not prepared
// yet. Prepared and committing transactions stay in the log for recovery.
func (c *Coordinator) Close(ctx context.Context) {
	if !c.closed.CAS(false, true) {
		return
	}
	c.stopWatchdog()

	for _, r := range c.snapshot() {
		ct := r.(*coordinatorTransaction)
		switch ct.Status() {
		case StatusNew, StatusBeginStarted, StatusBeginFinished:
			if _, err := ct.lockOrSkip(false, func() (interface{}, error) {
				return nil, c.rollback(ctx, ct, ct.sessionToken, c.cfg.InteractiveSessionKey, false)
			}); err != nil {
				log.Warnf("Rollback of transaction '%s' on close failed. %v", ct.id, err)
			}
		}
	}
	log.Infof("Coordinator closed")
}
