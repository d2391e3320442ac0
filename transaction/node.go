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
	"sync"
	"time"

	"github.com/endink/go-twopc/logging"
	"github.com/endink/go-twopc/util/timer"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var log = logging.GetLogger("transaction")

// Config holds what coordinators and participants share.
type Config struct {
	CoordinatorKey        string
	InteractiveSessionKey string
	SessionTokenProvider  SessionTokenProvider
	Log                   Log
	// TransactionTimeout is the idle time after which an unfinished transaction is rolled back.
	TransactionTimeout    time.Duration
	TransactionCountLimit int
}

func (c *Config) validate() error {
	if c.CoordinatorKey == "" {
		return errors.New("Transaction coordinator key cannot be null")
	}
	if c.InteractiveSessionKey == "" {
		return errors.New("Interactive session key cannot be null")
	}
	if c.SessionTokenProvider == nil {
		return errors.New("Session token provider cannot be null")
	}
	if c.Log == nil {
		return errors.New("Transaction log cannot be null")
	}
	if c.TransactionTimeout <= 0 {
		return errors.New("Transaction timeout cannot be <= 0")
	}
	if c.TransactionCountLimit <= 0 {
		return errors.New("Transaction count limit cannot be <= 0")
	}
	return nil
}

// node implements validation, registration, status logging, recovery from the
// log and the abandonment sweep for both node kinds.
type node struct {
	name        string
	coordinator bool
	cfg         Config
	txLog       Log

	mu           sync.Mutex
	transactions map[uuid.UUID]record

	ticksMu  sync.Mutex
	ticks    *timer.Timer
	sweepLog *logging.ThrottledLogger
}

func newNode(name string, coordinator bool, cfg Config) *node {
	return &node{
		name:         name,
		coordinator:  coordinator,
		cfg:          cfg,
		txLog:        cfg.Log,
		transactions: make(map[uuid.UUID]record),
		sweepLog:     logging.NewThrottledLogger("sweep "+name, log, 5*time.Second),
	}
}

func (n *node) checkTransactionID(id uuid.UUID) error {
	if id == uuid.Nil {
		return userFailure("Transaction id cannot be null")
	}
	return nil
}

func (n *node) checkSessionToken(sessionToken string) error {
	if sessionToken == "" {
		return userFailure("Session token cannot be null")
	}
	if !n.cfg.SessionTokenProvider.IsValid(sessionToken) {
		return userFailure("Invalid session token")
	}
	return nil
}

func (n *node) checkCoordinatorKey(key string) error {
	if key == "" {
		return userFailure("Transaction coordinator key cannot be null")
	}
	if key != n.cfg.CoordinatorKey {
		return userFailure("Invalid transaction coordinator key")
	}
	return nil
}

func (n *node) checkInteractiveSessionKey(key string) error {
	if key == "" {
		return userFailure("Interactive session key cannot be null")
	}
	if key != n.cfg.InteractiveSessionKey {
		return userFailure("Invalid interactive session key")
	}
	return nil
}

func (n *node) checkOperationName(name string) error {
	if name == "" {
		return userFailure("Operation name cannot be null")
	}
	return nil
}

func (n *node) checkOperationArguments(args []interface{}) error {
	if args == nil {
		return userFailure("Operation arguments cannot be null")
	}
	return nil
}

func (n *node) checkStatus(t *transaction, expected ...Status) error {
	current := t.Status()
	for _, s := range expected {
		if current == s {
			return nil
		}
	}
	return userFailure("Transaction '%s' unexpected status '%s'. Expected statuses '%s'.", t.id, current, formatStatuses(expected))
}

func (n *node) checkAccess(t *transaction, sessionToken string) error {
	if n.cfg.SessionTokenProvider.IsInstanceAdminOrSystem(sessionToken) {
		return nil
	}
	if t.sessionToken != sessionToken {
		return userFailure("Access denied to transaction '%s'", t.id)
	}
	return nil
}

// parked transactions wait for the sweep and no longer hold their session token.
func parked(t *transaction) bool {
	s := t.Status()
	return (s == StatusCommitStarted || s == StatusRollbackStarted) && !t.isBusy()
}

func (n *node) register(r record) error {
	t := r.state()
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.transactions[t.id]; ok {
		return userFailure("Transaction '%s' already exists.", t.id)
	}
	if len(n.transactions) >= n.cfg.TransactionCountLimit {
		return userFailure("Cannot create transaction '%s' because the transaction count limit has been reached. Number of existing transactions: %d",
			t.id, len(n.transactions))
	}
	if t.sessionToken != "" {
		for _, other := range n.transactions {
			o := other.state()
			if o.sessionToken == t.sessionToken && !parked(o) {
				return userFailure("Cannot create more than one transaction for the same session token. "+
					"Transaction that could not be created: '%s'. The already existing and still active transaction: '%s'.", t.id, o.id)
			}
		}
	}
	n.transactions[t.id] = r
	TxStats.SetLive(n.name, len(n.transactions))
	return nil
}

func (n *node) get(id uuid.UUID) record {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transactions[id]
}

// forget drops r from the node. The id can be used again afterwards. The
// resources of r are released before its slot under the count limit is.
func (n *node) forget(r record) {
	id := r.state().id
	r.close()
	n.mu.Lock()
	if cur, ok := n.transactions[id]; ok && cur == r {
		delete(n.transactions, id)
	}
	count := len(n.transactions)
	n.mu.Unlock()
	TxStats.SetLive(n.name, count)
}

func (n *node) snapshot() []record {
	n.mu.Lock()
	defer n.mu.Unlock()
	records := make([]record, 0, len(n.transactions))
	for _, r := range n.transactions {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].state().id.String() < records[j].state().id.String()
	})
	return records
}

func (n *node) changeStatus(r record, status Status) error {
	t := r.state()
	if status.IsFinished() {
		if err := n.txLog.DeleteTransaction(t.id); err != nil {
			return err
		}
		n.forget(r)
		t.setStatus(status)
		TxStats.RecordStatus(n.name, status)
		return nil
	}

	old := t.Status()
	t.setStatus(status)
	if err := n.txLog.LogTransaction(r.logEntry()); err != nil {
		t.setStatus(old)
		return err
	}
	TxStats.RecordStatus(n.name, status)
	return nil
}

// fail returns user and operation failures unchanged and wraps anything else
// into an internal failure carrying the message of the failed call.
func (n *node) fail(call string, err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	TxStats.RecordFailure(n.name, call, err)
	if e, ok := err.(*Error); ok && (e.Kind != KindInternal || e.Message == msg) {
		if e.Kind == KindInternal {
			log.Errorf("%s %+v", msg, e.cause)
		} else {
			log.Infof("%s %v", msg, err)
		}
		return err
	}
	log.Errorf("%s %+v", msg, err)
	return internalFailure(err, "%s", msg)
}

// loadLog registers the unfinished two-phase transactions found in the log and
// deletes the entries there is nothing to do for.
func (n *node) loadLog(create func(entry *LogEntry) record) ([]record, error) {
	log.Infof("Started recovering transactions of '%s' from transaction log", n.name)

	entries, err := n.txLog.GetTransactions()
	if err != nil {
		log.Errorf("Recovering transactions of '%s' from transaction log has failed. %v", n.name, err)
		TxStats.AddInternalErrors(n.name, "RecoveryFail")
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var errs error
	var recovered []record
	for _, id := range ids {
		entry := entries[id]
		switch {
		case !entry.TwoPhaseTransaction:
			log.Infof("Nothing to recover for one-phase transaction '%s' found in the transaction log with last status '%s'.",
				id, entry.TransactionStatus)
			errs = multierr.Append(errs, n.txLog.DeleteTransaction(id))
		case entry.TransactionStatus == StatusNew || entry.TransactionStatus.IsFinished():
			log.Infof("Nothing to recover for two-phase transaction '%s' found in the transaction log with last status '%s'.",
				id, entry.TransactionStatus)
			errs = multierr.Append(errs, n.txLog.DeleteTransaction(id))
		default:
			if n.get(id) != nil {
				continue
			}
			r := create(entry)
			err := n.register(r)
			if err == nil {
				if err = r.open(); err != nil {
					n.forget(r)
				}
			}
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("recover transaction '%s': %w", id, err))
				continue
			}
			log.Infof("Recovered transaction '%s' found in the transaction log with last status '%s'.", id, entry.TransactionStatus)
			recovered = append(recovered, r)
		}
	}

	if errs != nil {
		TxStats.AddInternalErrors(n.name, "RecoveryFail")
		log.Errorf("Recovering transactions of '%s' from transaction log finished with errors: %v", n.name, errs)
	} else {
		log.Infof("Finished recovering transactions of '%s' from transaction log", n.name)
	}
	return recovered, errs
}

type resolver func(ctx context.Context, r record) error

// sweep finishes transactions that failed half way or were abandoned by their client.
func (n *node) sweep(ctx context.Context, viaCommit resolver, viaRollback resolver) {
	log.Infof("Started processing of failed or abandoned transactions of '%s'", n.name)

	for _, r := range n.snapshot() {
		t := r.state()
		status := t.Status()
		log.Debugf("Checking transaction '%s' with last status '%s'.", t.id, status)

		var err error
		switch status {
		case StatusBeginStarted, StatusPrepareStarted, StatusRollbackStarted:
			// the action failed half way or could not log its end, no need to wait for the timeout
			err = n.resolve(ctx, r, "rollback", viaRollback)
		case StatusNew, StatusBeginFinished:
			idle := time.Since(t.LastAccessedDate())
			if idle > n.cfg.TransactionTimeout {
				log.Infof("Transaction '%s' has timed out. It was last accessed at '%s'.", t.id, t.LastAccessedDate().Format(time.RFC3339))
				err = n.resolve(ctx, r, "rollback", viaRollback)
			} else {
				log.Debugf("Transaction '%s' hasn't timed out yet. It was last accessed at '%s'. It will timeout in '%s'.",
					t.id, t.LastAccessedDate().Format(time.RFC3339), (n.cfg.TransactionTimeout - idle).Round(time.Second))
			}
		case StatusPrepareFinished:
			// a prepared participant waits for the coordinator decision
			if n.coordinator {
				err = n.resolve(ctx, r, "commit", viaCommit)
			}
		case StatusCommitStarted:
			err = n.resolve(ctx, r, "commit", viaCommit)
		}

		if err != nil {
			TxStats.AddInternalErrors(n.name, "SweepFail")
			n.sweepLog.Warnf("Finishing failed or abandoned transaction '%s' with last status '%s' has failed. %v", t.id, status, err)
		}
	}

	log.Infof("Finished processing of failed or abandoned transactions of '%s'", n.name)
}

func (n *node) resolve(ctx context.Context, r record, via string, fn resolver) error {
	ran, err := r.state().lockOrSkip(false, func() (interface{}, error) {
		return nil, fn(ctx, r)
	})
	if ran && err == nil {
		TxStats.RecordResolved(n.name, via)
	}
	return err
}

func (n *node) startWatchdog(interval time.Duration, sweep func(ctx context.Context)) {
	n.ticksMu.Lock()
	defer n.ticksMu.Unlock()
	if n.ticks != nil {
		return
	}
	n.ticks = timer.NewTimer(interval)
	n.ticks.Start(func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.TransactionTimeout)
		defer cancel()
		defer func() {
			if x := recover(); x != nil {
				TxStats.AddInternalErrors(n.name, "WatchdogFail")
				log.Errorf("Uncaught panic in watchdog of '%s': %v", n.name, x)
			}
		}()
		sweep(ctx)
	})
}

// triggerWatchdog runs a sweep now, when the watchdog is started.
func (n *node) triggerWatchdog() {
	n.ticksMu.Lock()
	defer n.ticksMu.Unlock()
	if n.ticks != nil {
		n.ticks.Trigger()
	}
}

func (n *node) stopWatchdog() {
	n.ticksMu.Lock()
	ticks := n.ticks
	n.ticks = nil
	n.ticksMu.Unlock()
	if ticks != nil {
		ticks.Stop()
	}
}

func (n *node) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transactions)
}
