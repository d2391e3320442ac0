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
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Participant owns the transactions of one resource manager. Every action of a
// transaction runs on the worker bound to it for its whole life.
type Participant struct {
	*node
	participantID string
	provider      DatabaseTransactionProvider
	executor      OperationExecutor
	workers       *workerPool
	closed        atomic.Bool
}

var _ TransactionParticipant = (*Participant)(nil)

func NewParticipant(participantID string, cfg Config, provider DatabaseTransactionProvider, executor OperationExecutor) (*Participant, error) {
	if participantID == "" {
		return nil, errors.New("Participant id cannot be null")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("Database transaction provider cannot be null")
	}
	if executor == nil {
		return nil, errors.New("Operation executor cannot be null")
	}
	return &Participant{
		node:          newNode(participantID, false, cfg),
		participantID: participantID,
		provider:      provider,
		executor:      executor,
		workers:       newWorkerPool(participantID, cfg.TransactionCountLimit),
	}, nil
}

type participantTransaction struct {
	*transaction
	twoPhase  bool
	recovered bool
	committed bool
	handle    interface{}
	pool      *workerPool
	worker    *worker
	closed    atomic.Bool
}

func (p *Participant) newTransaction(id uuid.UUID, sessionToken string, twoPhase bool) *participantTransaction {
	pt := &participantTransaction{
		transaction: newTransaction(id, sessionToken),
		twoPhase:    twoPhase,
		pool:        p.workers,
	}
	pt.run = pt.execute
	return pt
}

func (pt *participantTransaction) state() *transaction { return pt.transaction }

func (pt *participantTransaction) logEntry() *LogEntry {
	return &LogEntry{
		TransactionID:       pt.id,
		TwoPhaseTransaction: pt.twoPhase,
		TransactionStatus:   pt.Status(),
		LastAccessedDate:    pt.LastAccessedDate(),
	}
}

func (pt *participantTransaction) open() error {
	w, err := pt.pool.acquire()
	if err != nil {
		return err
	}
	pt.worker = w
	return nil
}

func (pt *participantTransaction) close() {
	if pt.closed.CAS(false, true) && pt.worker != nil {
		pt.pool.release(pt.worker)
	}
}

func (pt *participantTransaction) execute(a action) (interface{}, error) {
	if pt.closed.Load() {
		if pt.pool.isClosed() {
			return nil, fmt.Errorf("participant '%s' is closed", pt.pool.name)
		}
		return nil, fmt.Errorf("transaction '%s' has been already closed", pt.id)
	}
	if pt.worker == nil {
		return nil, fmt.Errorf("transaction '%s' has no worker", pt.id)
	}
	return pt.worker.execute(a)
}

func (p *Participant) ParticipantID() string {
	return p.participantID
}

func (p *Participant) lookup(id uuid.UUID) *participantTransaction {
	if r := p.get(id); r != nil {
		return r.(*participantTransaction)
	}
	return nil
}

func (p *Participant) BeginTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	defer TxStats.RecordLatency(p.name, "begin", time.Now())
	if err := p.begin(ctx, id, sessionToken, interactiveSessionKey, coordinatorKey); err != nil {
		return p.fail("begin", err, "Begin transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) begin(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	if err := p.checkTransactionID(id); err != nil {
		return err
	}
	if err := p.checkSessionToken(sessionToken); err != nil {
		return err
	}
	if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
		return err
	}
	if coordinatorKey != "" {
		if err := p.checkCoordinatorKey(coordinatorKey); err != nil {
			return err
		}
	}
	if p.closed.Load() {
		return fmt.Errorf("participant '%s' is closed", p.participantID)
	}

	pt := p.newTransaction(id, sessionToken, coordinatorKey != "")
	if err := p.register(pt); err != nil {
		return err
	}
	if err := pt.open(); err != nil {
		p.forget(pt)
		return err
	}

	return pt.lockOrFail(true, func() (interface{}, error) {
		log.Infof("Begin transaction '%s' started.", id)

		err := p.changeStatus(pt, StatusBeginStarted)
		if err == nil {
			var handle interface{}
			if handle, err = p.provider.BeginTransaction(ctx, id); err == nil {
				pt.handle = handle
				err = p.changeStatus(pt, StatusBeginFinished)
			}
		}

		if err != nil {
			if rollbackErr := p.rollback(ctx, pt); rollbackErr != nil {
				log.Warnf("Transaction '%s' rollback failed. %v", id, rollbackErr)
				if deleteErr := p.txLog.DeleteTransaction(id); deleteErr != nil {
					log.Warnf("Could not delete transaction '%s'. %v", id, deleteErr)
				}
				p.forget(pt)
			}
			return nil, err
		}

		log.Infof("Begin transaction '%s' finished successfully.", id)
		return nil, nil
	})
}

func (p *Participant) ExecuteOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
	operationName string, operationArguments []interface{}) (interface{}, error) {
	defer TxStats.RecordLatency(p.name, "execute", time.Now())
	result, err := p.executeOperation(ctx, id, sessionToken, interactiveSessionKey, operationName, operationArguments)
	if err != nil {
		return nil, p.fail("execute", err, "Transaction '%s' execute operation '%s' failed.", id, operationName)
	}
	return result, nil
}

func (p *Participant) executeOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
	operationName string, operationArguments []interface{}) (interface{}, error) {
	if err := p.checkTransactionID(id); err != nil {
		return nil, err
	}
	if err := p.checkSessionToken(sessionToken); err != nil {
		return nil, err
	}
	if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
		return nil, err
	}
	if err := p.checkOperationName(operationName); err != nil {
		return nil, err
	}
	if err := p.checkOperationArguments(operationArguments); err != nil {
		return nil, err
	}

	pt := p.lookup(id)
	if pt == nil {
		return nil, userFailure("Transaction '%s' does not exist.", id)
	}

	return pt.withoutLock(true, func() (interface{}, error) {
		if err := p.checkAccess(pt.transaction, sessionToken); err != nil {
			return nil, err
		}
		if err := p.checkStatus(pt.transaction, StatusBeginFinished); err != nil {
			return nil, err
		}

		log.Infof("Transaction '%s' execute operation '%s' started.", id, operationName)

		// a failed operation leaves the transaction open, the caller decides what comes next
		result, err := p.executor.ExecuteOperation(WithHandle(ctx, id, pt.handle), sessionToken, operationName, operationArguments)
		if err != nil {
			return nil, operationFailure(err)
		}

		log.Infof("Transaction '%s' execute operation '%s' finished successfully.", id, operationName)
		return result, nil
	})
}

func (p *Participant) PrepareTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	defer TxStats.RecordLatency(p.name, "prepare", time.Now())
	if err := p.prepare(ctx, id, sessionToken, interactiveSessionKey, coordinatorKey); err != nil {
		return p.fail("prepare", err, "Prepare transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) prepare(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	if err := p.checkTransactionID(id); err != nil {
		return err
	}
	if err := p.checkSessionToken(sessionToken); err != nil {
		return err
	}
	if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
		return err
	}
	if err := p.checkCoordinatorKey(coordinatorKey); err != nil {
		return err
	}

	pt := p.lookup(id)
	if pt == nil {
		return userFailure("Transaction '%s' does not exist.", id)
	}

	return pt.lockOrFail(true, func() (interface{}, error) {
		if err := p.checkAccess(pt.transaction, sessionToken); err != nil {
			return nil, err
		}
		if err := p.checkStatus(pt.transaction, StatusBeginFinished); err != nil {
			return nil, err
		}
		if !pt.twoPhase {
			return nil, userFailure("Transaction '%s' was started without transaction coordinator key, therefore calling prepare is not allowed.", id)
		}

		log.Infof("Prepare transaction '%s' started.", id)

		err := p.changeStatus(pt, StatusPrepareStarted)
		if err == nil {
			if err = p.provider.PrepareTransaction(ctx, id, pt.handle); err == nil {
				err = p.changeStatus(pt, StatusPrepareFinished)
			}
		}
		if err != nil {
			if rollbackErr := p.rollback(ctx, pt); rollbackErr != nil {
				log.Warnf("Transaction '%s' rollback failed, it stays in '%s' for the sweep. %v", id, pt.Status(), rollbackErr)
			}
			return nil, err
		}

		log.Infof("Prepare transaction '%s' finished successfully.", id)
		return nil, nil
	})
}

func (p *Participant) CommitTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	defer TxStats.RecordLatency(p.name, "commit", time.Now())
	err := func() error {
		if err := p.checkTransactionID(id); err != nil {
			return err
		}
		if err := p.checkSessionToken(sessionToken); err != nil {
			return err
		}
		if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}
		pt := p.lookup(id)
		if pt == nil {
			return userFailure("Transaction '%s' does not exist.", id)
		}
		return pt.lockOrFail(true, func() (interface{}, error) {
			if err := p.checkAccess(pt.transaction, sessionToken); err != nil {
				return nil, err
			}
			return nil, p.commit(ctx, pt)
		})
	}()
	if err != nil {
		if pt := p.lookup(id); pt != nil && parked(pt.transaction) {
			go p.triggerWatchdog()
		}
		return p.fail("commit", err, "Commit transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) CommitRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error {
	defer TxStats.RecordLatency(p.name, "commit_recovered", time.Now())
	err := func() error {
		if err := p.checkTransactionID(id); err != nil {
			return err
		}
		if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}
		if err := p.checkCoordinatorKey(coordinatorKey); err != nil {
			return err
		}
		pt := p.lookup(id)
		if pt == nil {
			return userFailure("Transaction '%s' does not exist.", id)
		}
		return pt.lockOrWait(ctx, p.cfg.TransactionTimeout, true, func() (interface{}, error) {
			return nil, p.commit(ctx, pt)
		})
	}()
	if err != nil {
		return p.fail("commit_recovered", err, "Commit transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) commit(ctx context.Context, pt *participantTransaction) error {
	if pt.twoPhase {
		if err := p.checkStatus(pt.transaction, StatusPrepareFinished, StatusCommitStarted); err != nil {
			return err
		}
	} else {
		if err := p.checkStatus(pt.transaction, StatusBeginFinished, StatusCommitStarted); err != nil {
			return err
		}
	}

	log.Infof("Commit transaction '%s' started.", pt.id)

	if err := p.changeStatus(pt, StatusCommitStarted); err != nil {
		return err
	}

	// the resource is committed once only, a retry just finishes the log
	if !pt.committed {
		if err := p.provider.CommitTransaction(ctx, pt.id, pt.handle, pt.twoPhase); err != nil {
			// a two-phase commit may have happened elsewhere already, only recovery may finish it
			if !pt.twoPhase {
				if rollbackErr := p.rollback(ctx, pt); rollbackErr != nil {
					log.Warnf("Transaction '%s' rollback failed. %v", pt.id, rollbackErr)
				}
			}
			return err
		}
		pt.committed = true
	}

	if err := p.changeStatus(pt, StatusCommitFinished); err != nil {
		return err
	}

	log.Infof("Commit transaction '%s' finished successfully.", pt.id)
	return nil
}

func (p *Participant) RollbackTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	defer TxStats.RecordLatency(p.name, "rollback", time.Now())
	err := func() error {
		if err := p.checkTransactionID(id); err != nil {
			return err
		}
		if err := p.checkSessionToken(sessionToken); err != nil {
			return err
		}
		if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}
		pt := p.lookup(id)
		if pt == nil {
			return nil
		}
		return pt.lockOrFail(true, func() (interface{}, error) {
			if err := p.checkAccess(pt.transaction, sessionToken); err != nil {
				return nil, err
			}
			return nil, p.rollback(ctx, pt)
		})
	}()
	if err != nil {
		return p.fail("rollback", err, "Rollback transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) RollbackRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error {
	defer TxStats.RecordLatency(p.name, "rollback_recovered", time.Now())
	err := func() error {
		if err := p.checkTransactionID(id); err != nil {
			return err
		}
		if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return err
		}
		if err := p.checkCoordinatorKey(coordinatorKey); err != nil {
			return err
		}
		pt := p.lookup(id)
		if pt == nil {
			return nil
		}
		return pt.lockOrWait(ctx, p.cfg.TransactionTimeout, true, func() (interface{}, error) {
			return nil, p.rollback(ctx, pt)
		})
	}()
	if err != nil {
		return p.fail("rollback_recovered", err, "Rollback transaction '%s' failed.", id)
	}
	return nil
}

func (p *Participant) rollback(ctx context.Context, pt *participantTransaction) error {
	if pt.Status() == StatusRollbackFinished {
		log.Infof("Transaction '%s' has been already rolled back before.", pt.id)
		return nil
	}
	if pt.committed {
		return userFailure("Transaction '%s' has been already committed.", pt.id)
	}

	if pt.twoPhase {
		if err := p.checkStatus(pt.transaction, StatusNew, StatusBeginStarted, StatusBeginFinished,
			StatusPrepareStarted, StatusPrepareFinished, StatusRollbackStarted); err != nil {
			return err
		}
	} else {
		if err := p.checkStatus(pt.transaction, StatusNew, StatusBeginStarted, StatusBeginFinished,
			StatusCommitStarted, StatusRollbackStarted); err != nil {
			return err
		}
	}

	log.Infof("Rollback transaction '%s' started.", pt.id)

	if err := p.changeStatus(pt, StatusRollbackStarted); err != nil {
		return err
	}

	// recovered transactions have no handle but may still hold prepared state in the resource
	if pt.handle != nil || pt.recovered {
		if err := p.provider.RollbackTransaction(ctx, pt.id, pt.handle, pt.twoPhase); err != nil {
			return err
		}
	}

	if err := p.changeStatus(pt, StatusRollbackFinished); err != nil {
		return err
	}

	log.Infof("Rollback transaction '%s' finished successfully.", pt.id)
	return nil
}

// RecoverTransactions reloads the log and lists two-phase transactions that
// wait for the coordinator: prepared ones and commits nobody is working on.
func (p *Participant) RecoverTransactions(ctx context.Context, interactiveSessionKey, coordinatorKey string) ([]uuid.UUID, error) {
	defer TxStats.RecordLatency(p.name, "recover", time.Now())
	ids, err := func() ([]uuid.UUID, error) {
		if err := p.checkInteractiveSessionKey(interactiveSessionKey); err != nil {
			return nil, err
		}
		if err := p.checkCoordinatorKey(coordinatorKey); err != nil {
			return nil, err
		}

		log.Infof("Started recovering transactions of '%s' (triggered by the coordinator)", p.participantID)

		if err := p.RecoverTransactionsFromTransactionLog(ctx); err != nil {
			return nil, err
		}

		var prepared []uuid.UUID
		for _, r := range p.snapshot() {
			pt := r.(*participantTransaction)
			if !pt.twoPhase {
				continue
			}
			switch pt.Status() {
			case StatusPrepareFinished:
				prepared = append(prepared, pt.id)
			case StatusCommitStarted:
				if _, err := pt.lockOrSkip(false, func() (interface{}, error) {
					prepared = append(prepared, pt.id)
					return nil, nil
				}); err != nil {
					return nil, err
				}
			}
		}

		log.Infof("Finished recovering transactions of '%s' (triggered by the coordinator)", p.participantID)
		return prepared, nil
	}()
	if err != nil {
		return nil, p.fail("recover", err, "Recover transactions failed.")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// RecoverTransactionsFromTransactionLog registers the unfinished two-phase
// transactions of the log. They are resolved by the coordinator or by the sweep.
func (p *Participant) RecoverTransactionsFromTransactionLog(_ context.Context) error {
	_, err := p.loadLog(func(entry *LogEntry) record {
		pt := p.newTransaction(entry.TransactionID, "", entry.TwoPhaseTransaction)
		pt.setStatus(entry.TransactionStatus)
		pt.lastAccessed.Store(0)
		pt.recovered = true
		return pt
	})
	return err
}

func (p *Participant) FinishFailedOrAbandonedTransactions(ctx context.Context) {
	p.sweep(ctx,
		func(ctx context.Context, r record) error {
			return p.commit(ctx, r.(*participantTransaction))
		},
		func(ctx context.Context, r record) error {
			return p.rollback(ctx, r.(*participantTransaction))
		})
}

// GetTransaction returns a copy of the transaction state, nil when the id is unknown.
func (p *Participant) GetTransaction(id uuid.UUID) *TransactionInfo {
	pt := p.lookup(id)
	if pt == nil {
		return nil
	}
	info := pt.info()
	info.TwoPhase = pt.twoPhase
	return info
}

// Transactions lists every transaction the participant knows about.
func (p *Participant) Transactions() []*TransactionInfo {
	records := p.snapshot()
	infos := make([]*TransactionInfo, 0, len(records))
	for _, r := range records {
		pt := r.(*participantTransaction)
		info := pt.info()
		info.TwoPhase = pt.twoPhase
		infos = append(infos, info)
	}
	return infos
}

// StartWatchdog runs FinishFailedOrAbandonedTransactions every interval until Close.
func (p *Participant) StartWatchdog(interval time.Duration) {
	p.startWatchdog(interval, p.FinishFailedOrAbandonedTransactions)
}

// Close stops the watchdog, rolls back transactions that were not prepared
// yet and stops the workers. Prepared and committing transactions stay in the
// log for recovery.
func (p *Participant) Close(ctx context.Context) {
	if !p.closed.CAS(false, true) {
		return
	}
	p.stopWatchdog()

	for _, r := range p.snapshot() {
		pt := r.(*participantTransaction)
		switch pt.Status() {
		case StatusNew, StatusBeginStarted, StatusBeginFinished:
			if _, err := pt.lockOrSkip(false, func() (interface{}, error) {
				return nil, p.rollback(ctx, pt)
			}); err != nil {
				log.Warnf("Rollback of transaction '%s' on close failed. %v", pt.id, err)
			}
		}
	}

	p.workers.close()
	for _, r := range p.snapshot() {
		r.close()
	}
	log.Infof("Participant '%s' closed", p.participantID)
}
