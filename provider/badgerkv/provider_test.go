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

package badgerkv

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/endink/go-twopc/provider"
	"github.com/endink/go-twopc/testkit"
	"github.com/endink/go-twopc/transaction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func run(id uuid.UUID, handle interface{}, op string, args ...interface{}) (interface{}, error) {
	return Executor{}.ExecuteOperation(transaction.WithHandle(context.Background(), id, handle), "", op, args)
}

func mustRun(t *testing.T, id uuid.UUID, handle interface{}, op string, args ...interface{}) interface{} {
	v, err := run(id, handle, op, args...)
	require.NoError(t, err)
	return v
}

func read(t *testing.T, db *badger.DB, key string) string {
	v, err := Read(db, key)
	require.NoError(t, err)
	return string(v)
}

func TestOnePhaseCommit(t *testing.T) {
	db := openDB(t)
	p := NewProvider(db)
	ctx := context.Background()
	id := uuid.New()

	h, err := p.BeginTransaction(ctx, id)
	require.NoError(t, err)
	mustRun(t, id, h, OpPut, "a", "1")
	assert.Equal(t, "1", mustRun(t, id, h, OpGet, "a"))
	assert.Equal(t, "", read(t, db, "a"))

	require.NoError(t, p.CommitTransaction(ctx, id, h, false))
	assert.Equal(t, "1", read(t, db, "a"))

	_, err = run(id, h, OpGet, "a")
	assert.EqualError(t, err, "transaction '"+id.String()+"' is already finished")
}

func TestTwoPhaseCommit(t *testing.T) {
	db := openDB(t)
	p := NewProvider(db)
	ctx := context.Background()
	id := uuid.New()

	h, err := p.BeginTransaction(ctx, id)
	require.NoError(t, err)
	mustRun(t, id, h, OpPut, "a", "1")
	mustRun(t, id, h, OpCreateEntities, "users", "ann", "ben")
	require.NoError(t, p.PrepareTransaction(ctx, id, h))

	prepared, err := p.Prepared()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, prepared)

	require.NoError(t, p.CommitTransaction(ctx, id, h, true))
	assert.Equal(t, "1", read(t, db, "a"))
	assert.Equal(t, "ann", read(t, db, "users/ann"))

	prepared, err = p.Prepared()
	require.NoError(t, err)
	assert.Empty(t, prepared)
}

func TestCommitReplaysPreparedRecord(t *testing.T) {
	db := openDB(t)
	p := NewProvider(db)
	ctx := context.Background()
	id := uuid.New()

	seedID := uuid.New()
	seed, err := p.BeginTransaction(ctx, seedID)
	require.NoError(t, err)
	mustRun(t, seedID, seed, OpPut, "gone", "x")
	require.NoError(t, p.CommitTransaction(ctx, seedID, seed, false))

	h, err := p.BeginTransaction(ctx, id)
	require.NoError(t, err)
	mustRun(t, id, h, OpPut, "a", "1")
	mustRun(t, id, h, OpDelete, "gone")
	require.NoError(t, p.PrepareTransaction(ctx, id, h))
	h.(*Handle).txn.Discard()

	// after a restart the commit comes without a handle
	fresh := NewProvider(db)
	require.NoError(t, fresh.CommitTransaction(ctx, id, nil, true))
	assert.Equal(t, "1", read(t, db, "a"))
	assert.Equal(t, "", read(t, db, "gone"))

	err = fresh.CommitTransaction(ctx, id, nil, true)
	assert.EqualError(t, err, "transaction '"+id.String()+"' has no prepared record")
}

func TestRollback(t *testing.T) {
	db := openDB(t)
	p := NewProvider(db)
	ctx := context.Background()
	id := uuid.New()

	h, err := p.BeginTransaction(ctx, id)
	require.NoError(t, err)
	mustRun(t, id, h, OpPut, "a", "1")
	require.NoError(t, p.PrepareTransaction(ctx, id, h))

	require.NoError(t, p.RollbackTransaction(ctx, id, h, true))
	require.NoError(t, p.RollbackTransaction(ctx, id, h, true))
	assert.Equal(t, "", read(t, db, "a"))
	prepared, err := p.Prepared()
	require.NoError(t, err)
	assert.Empty(t, prepared)

	require.NoError(t, p.RollbackTransaction(ctx, uuid.New(), nil, true))
}

func TestPrepareWithoutHandle(t *testing.T) {
	p := NewProvider(openDB(t))
	id := uuid.New()
	err := p.PrepareTransaction(context.Background(), id, nil)
	assert.EqualError(t, err, "transaction '"+id.String()+"' cannot be prepared without a handle")

	err = p.PrepareTransaction(context.Background(), id, "nope")
	assert.Error(t, err)
}

func TestExecutorErrors(t *testing.T) {
	p := NewProvider(openDB(t))
	id := uuid.New()
	h, err := p.BeginTransaction(context.Background(), id)
	require.NoError(t, err)
	defer func() { _ = p.RollbackTransaction(context.Background(), id, h, false) }()

	assert.Nil(t, mustRun(t, id, h, OpGet, "missing"))

	_, err = run(id, h, OpPut, "__twopc/prepared/x", "1")
	assert.EqualError(t, err, "key '__twopc/prepared/x' is reserved")
	_, err = run(id, h, OpPut, "", "1")
	assert.EqualError(t, err, "operation 'put' key cannot be empty")
	_, err = run(id, h, OpPut, "a")
	assert.EqualError(t, err, "operation 'put' expects at least 2 arguments, got 1")
	_, err = run(id, h, "scan")
	assert.EqualError(t, err, "unknown operation 'scan'")

	_, err = Executor{}.ExecuteOperation(context.Background(), "", OpGet, []interface{}{"a"})
	assert.EqualError(t, err, "no transaction bound to the call")
}

func TestBackendIsRegistered(t *testing.T) {
	testkit.AssertStrArrayEquals(t, []string{BackendName}, provider.DefaultRegistry().Names())

	res, err := provider.OpenBackend(BackendName, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &Provider{}, res.Provider)
	assert.IsType(t, Executor{}, res.Executor)
	require.NoError(t, res.Close())
}
