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
	"strings"
	"testing"
	"time"

	"github.com/endink/go-twopc/testkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testCoordinatorKey = "test-coordinator-key"
	testInteractiveKey = "test-interactive-key"
	testToken          = "test-session-token"
	testOtherToken     = "test-other-session-token"
	testAdminToken     = "test-admin-token"
)

type testTokens map[string]bool

func (tt testTokens) IsValid(sessionToken string) bool {
	_, ok := tt[sessionToken]
	return ok
}

func (tt testTokens) IsInstanceAdminOrSystem(sessionToken string) bool {
	return tt[sessionToken]
}

func newTestTokens() testTokens {
	return testTokens{testToken: false, testOtherToken: false, testAdminToken: true}
}

func newTestLog(t *testing.T, root string, owner string) *FileLog {
	txLog, err := NewFileLog(root, owner)
	require.NoError(t, err)
	return txLog
}

func newTestConfig(txLog Log, limit int) Config {
	return Config{
		CoordinatorKey:        testCoordinatorKey,
		InteractiveSessionKey: testInteractiveKey,
		SessionTokenProvider:  newTestTokens(),
		Log:                   txLog,
		TransactionTimeout:    time.Minute,
		TransactionCountLimit: limit,
	}
}

type participantFixture struct {
	*Participant
	root     string
	log      *FileLog
	provider *testkit.FakeProvider
	executor *testkit.FakeExecutor
}

func newParticipantFixture(t *testing.T, id string, limit int) *participantFixture {
	return newParticipantFixtureAt(t, t.TempDir(), id, limit, nil)
}

func newParticipantFixtureAt(t *testing.T, root string, id string, limit int, tune func(cfg *Config)) *participantFixture {
	txLog := newTestLog(t, root, id)
	cfg := newTestConfig(txLog, limit)
	if tune != nil {
		tune(&cfg)
	}
	f := &participantFixture{
		root:     root,
		log:      txLog,
		provider: testkit.NewFakeProvider(),
		executor: testkit.NewFakeExecutor(),
	}
	p, err := NewParticipant(id, cfg, f.provider, f.executor)
	require.NoError(t, err)
	f.Participant = p
	t.Cleanup(func() { p.Close(context.Background()) })
	return f
}

func (f *participantFixture) begin(t *testing.T, twoPhase bool) uuid.UUID {
	return f.beginAs(t, testToken, twoPhase)
}

func (f *participantFixture) beginAs(t *testing.T, sessionToken string, twoPhase bool) uuid.UUID {
	id := uuid.New()
	key := ""
	if twoPhase {
		key = testCoordinatorKey
	}
	require.NoError(t, f.BeginTransaction(context.Background(), id, sessionToken, testInteractiveKey, key))
	return id
}

func (f *participantFixture) logged(t *testing.T) map[uuid.UUID]*LogEntry {
	entries, err := f.log.GetTransactions()
	require.NoError(t, err)
	return entries
}

// callsOf expands "commit recovered" into "commit <id> recovered", the format recorded by FakeProvider.
func callsOf(id uuid.UUID, calls ...string) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		parts := strings.SplitN(c, " ", 2)
		out[i] = parts[0] + " " + id.String()
		if len(parts) > 1 {
			out[i] += " " + parts[1]
		}
	}
	return out
}

// forgetObserver records whether the transaction was still registered when it got closed.
type forgetObserver struct {
	*participantTransaction
	node              *node
	registeredOnClose bool
}

func (o *forgetObserver) close() {
	o.registeredOnClose = o.node.get(o.id) != nil
	o.participantTransaction.close()
}

// failingLog fails every write while err is set.
type failingLog struct {
	Log
	err error
}

func (l *failingLog) LogTransaction(entry *LogEntry) error {
	if l.err != nil {
		return l.err
	}
	return l.Log.LogTransaction(entry)
}
