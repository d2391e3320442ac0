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

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/endink/go-twopc/logging"
	"github.com/endink/go-twopc/transaction"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pingcap/errors"
)

var log = logging.GetLogger("sqlstore")

const DriverName = "sqlite3"

// BusyTimeout bounds how long a statement waits for a lock held by another transaction.
const BusyTimeout = 500 * time.Millisecond

// Open opens a sqlite database with foreign keys enforced. An empty path opens a
// private in-memory database shared by the connections of the returned pool.
//
// Every transaction owns a connection of the pool. File databases run in WAL mode
// so readers never wait for a writer; a write that conflicts with another open
// transaction fails after BusyTimeout.
func Open(path string) (*sql.DB, error) {
	var dsn string
	params := []string{"_foreign_keys=on"}
	if path == "" || path == ":memory:" {
		dsn = fmt.Sprintf("file:twopc-%s", uuid.New())
		params = append(params, "mode=memory", "cache=shared")
	} else {
		dsn = path
		params = append(params, "_journal_mode=WAL", fmt.Sprintf("_busy_timeout=%d", BusyTimeout.Milliseconds()))
	}
	if strings.Contains(dsn, "?") {
		dsn += "&" + strings.Join(params, "&")
	} else {
		dsn += "?" + strings.Join(params, "&")
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "open sqlite at '%s'", path)
	}
	return db, nil
}

// Provider runs transactions on a database/sql connection pool. sqlite keeps no
// prepared state, a transaction lost by a restart cannot be committed anymore.
type Provider struct {
	db *sql.DB
}

var _ transaction.DatabaseTransactionProvider = (*Provider)(nil)

func NewProvider(db *sql.DB) *Provider {
	return &Provider{db: db}
}

// Tx is the handle of one transaction, it owns its connection until it finishes.
type Tx struct {
	*sql.Tx
	conn *sql.Conn
}

func (t *Tx) finish(err error) error {
	if closeErr := t.conn.Close(); err == nil && closeErr != nil && closeErr != sql.ErrConnDone {
		return closeErr
	}
	return err
}

func txOf(id uuid.UUID, handle interface{}) (*Tx, error) {
	if handle == nil {
		return nil, nil
	}
	tx, ok := handle.(*Tx)
	if !ok {
		return nil, fmt.Errorf("transaction '%s' has an unexpected handle of type %T", id, handle)
	}
	return tx, nil
}

func (p *Provider) BeginTransaction(ctx context.Context, id uuid.UUID) (interface{}, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, errors.Annotatef(err, "begin transaction '%s'", id)
	}
	// the transaction outlives the call that began it, it must not follow its context
	tx, err := conn.BeginTx(context.Background(), nil)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Annotatef(err, "begin transaction '%s'", id)
	}
	return &Tx{Tx: tx, conn: conn}, nil
}

// PrepareTransaction checks deferred constraints, sqlite would only report them on commit.
func (p *Provider) PrepareTransaction(ctx context.Context, id uuid.UUID, handle interface{}) error {
	tx, err := txOf(id, handle)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("transaction '%s' cannot be prepared without a handle", id)
	}
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return errors.Annotatef(err, "prepare transaction '%s'", id)
	}
	defer rows.Close()
	var violations []string
	for rows.Next() {
		var table, parent string
		var rowID sql.NullInt64
		var fkid int64
		if err := rows.Scan(&table, &rowID, &parent, &fkid); err != nil {
			return errors.Trace(err)
		}
		violations = append(violations, fmt.Sprintf("%s(%d) -> %s", table, rowID.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return errors.Trace(err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("transaction '%s' violates foreign keys: %s", id, strings.Join(violations, ", "))
	}
	return nil
}

func (p *Provider) CommitTransaction(_ context.Context, id uuid.UUID, handle interface{}, _ bool) error {
	tx, err := txOf(id, handle)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("transaction '%s' cannot be committed after a restart, sqlite keeps no prepared state", id)
	}
	err = tx.Commit()
	if err == sql.ErrTxDone {
		return fmt.Errorf("transaction '%s' is already finished", id)
	}
	return errors.Annotatef(tx.finish(err), "commit transaction '%s'", id)
}

func (p *Provider) RollbackTransaction(_ context.Context, id uuid.UUID, handle interface{}, _ bool) error {
	tx, err := txOf(id, handle)
	if err != nil {
		return err
	}
	if tx == nil {
		log.Infof("Transaction '%s' has nothing to roll back after a restart.", id)
		return nil
	}
	err = tx.Rollback()
	if err == sql.ErrTxDone {
		err = nil
	}
	return errors.Annotatef(tx.finish(err), "rollback transaction '%s'", id)
}
