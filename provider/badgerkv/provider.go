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
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/endink/go-twopc/logging"
	"github.com/endink/go-twopc/transaction"
	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

var log = logging.GetLogger("badgerkv")

// PreparedPrefix holds one record per prepared transaction, the write set it has to apply on commit.
const PreparedPrefix = "__twopc/prepared/"

const reservedPrefix = "__twopc/"

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(template string, args ...interface{}) {
	l.Warnf(template, args...)
}

// Open opens the database at path, an empty path or ":memory:" keeps it in memory.
func Open(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" || path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(badgerLogger{log}).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Annotatef(err, "open badger at '%s'", path)
	}
	return db, nil
}

// Write is one change of a transaction write set.
type Write struct {
	Key    string `json:"key"`
	Value  []byte `json:"value,omitempty"`
	Delete bool   `json:"delete,omitempty"`
}

// Handle is the live state of one transaction. It is only touched from the
// worker of its transaction.
type Handle struct {
	id     uuid.UUID
	txn    *badger.Txn
	mu     sync.Mutex
	writes []Write
	done   bool
}

func (h *Handle) record(w Write) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, w)
}

func (h *Handle) writeSet() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write(nil), h.writes...)
}

// Provider runs transactions on a badger database. Prepare persists the write
// set so a commit decided by the coordinator survives a restart.
type Provider struct {
	db *badger.DB
}

var _ transaction.DatabaseTransactionProvider = (*Provider)(nil)

func NewProvider(db *badger.DB) *Provider {
	return &Provider{db: db}
}

func preparedKey(id uuid.UUID) []byte {
	return []byte(PreparedPrefix + id.String())
}

func handleOf(id uuid.UUID, handle interface{}) (*Handle, error) {
	if handle == nil {
		return nil, nil
	}
	h, ok := handle.(*Handle)
	if !ok {
		return nil, fmt.Errorf("transaction '%s' has an unexpected handle of type %T", id, handle)
	}
	return h, nil
}

func (p *Provider) BeginTransaction(_ context.Context, id uuid.UUID) (interface{}, error) {
	return &Handle{id: id, txn: p.db.NewTransaction(true)}, nil
}

func (p *Provider) PrepareTransaction(_ context.Context, id uuid.UUID, handle interface{}) error {
	h, err := handleOf(id, handle)
	if err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("transaction '%s' cannot be prepared without a handle", id)
	}
	data, err := json.Marshal(h.writeSet())
	if err != nil {
		return errors.Trace(err)
	}
	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(preparedKey(id), data)
	})
	return errors.Annotatef(err, "persist prepared transaction '%s'", id)
}

func (p *Provider) CommitTransaction(_ context.Context, id uuid.UUID, handle interface{}, twoPhase bool) error {
	h, err := handleOf(id, handle)
	if err != nil {
		return err
	}
	if h == nil {
		return p.replay(id)
	}
	if !h.done {
		h.done = true
		err = h.txn.Commit()
		if err == nil {
			if twoPhase {
				return p.dropPrepared(id)
			}
			return nil
		}
		if !twoPhase {
			return errors.Annotatef(err, "commit transaction '%s'", id)
		}
		log.Warnf("Commit of prepared transaction '%s' failed, applying its prepared record instead. %v", id, err)
	}
	return p.replay(id)
}

func (p *Provider) RollbackTransaction(_ context.Context, id uuid.UUID, handle interface{}, twoPhase bool) error {
	h, err := handleOf(id, handle)
	if err != nil {
		return err
	}
	if h != nil && !h.done {
		h.done = true
		h.txn.Discard()
	}
	if twoPhase || h == nil {
		return p.dropPrepared(id)
	}
	return nil
}

// replay applies the prepared record of id and removes it in one update.
func (p *Provider) replay(id uuid.UUID) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(preparedKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("transaction '%s' has no prepared record", id)
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var writes []Write
		if err := json.Unmarshal(data, &writes); err != nil {
			return errors.Annotatef(err, "corrupted prepared record of transaction '%s'", id)
		}
		for _, w := range writes {
			if w.Delete {
				err = txn.Delete([]byte(w.Key))
			} else {
				err = txn.Set([]byte(w.Key), w.Value)
			}
			if err != nil {
				return err
			}
		}
		return txn.Delete(preparedKey(id))
	})
	if err == nil {
		log.Infof("Transaction '%s' committed from its prepared record.", id)
	}
	return err
}

func (p *Provider) dropPrepared(id uuid.UUID) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(preparedKey(id))
	})
	return errors.Annotatef(err, "drop prepared record of transaction '%s'", id)
}

// Prepared lists the transactions holding a prepared record.
func (p *Provider) Prepared() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.View(func(txn *badger.Txn) error {
		opt := badger.DefaultIteratorOptions
		opt.Prefix = []byte(PreparedPrefix)
		opt.PrefetchValues = false
		it := txn.NewIterator(opt)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			id, err := uuid.Parse(strings.TrimPrefix(key, PreparedPrefix))
			if err != nil {
				log.Infof("Skipping unexpected prepared key '%s'", key)
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}
