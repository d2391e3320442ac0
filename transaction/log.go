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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
)

// Log persists the state of unfinished transactions of one node.
type Log interface {
	// LogTransaction inserts or replaces the entry of entry.TransactionID.
	LogTransaction(entry *LogEntry) error
	// DeleteTransaction removes the entry, a missing entry is not an error.
	DeleteTransaction(id uuid.UUID) error
	// GetTransactions returns every readable entry.
	GetTransactions() (map[uuid.UUID]*LogEntry, error)
}

// FileLog keeps one JSON file per transaction inside <root>/<owner>.
type FileLog struct {
	folder string
	// guards temp file creation and rename against a concurrent scan
	mu sync.RWMutex
}

var _ Log = (*FileLog)(nil)

func NewFileLog(root string, owner string) (*FileLog, error) {
	if root == "" {
		return nil, errors.New("transaction log root folder cannot be empty")
	}
	if owner == "" {
		return nil, errors.New("transaction log owner cannot be empty")
	}
	rootFolder, err := prepareFolder(root)
	if err != nil {
		return nil, err
	}
	folder, err := prepareFolder(filepath.Join(rootFolder, owner))
	if err != nil {
		return nil, err
	}
	return &FileLog{folder: folder}, nil
}

func prepareFolder(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Trace(err)
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("Folder '%s' is not a directory", abs)
		}
		return abs, nil
	}
	if !os.IsNotExist(err) {
		return "", errors.Annotatef(err, "check folder '%s'", abs)
	}
	if err = os.MkdirAll(abs, 0755); err != nil {
		return "", errors.Annotatef(err, "create folder '%s'", abs)
	}
	return abs, nil
}

func (l *FileLog) Folder() string {
	return l.folder
}

func (l *FileLog) path(id uuid.UUID) string {
	return filepath.Join(l.folder, id.String())
}

func (l *FileLog) LogTransaction(entry *LogEntry) error {
	if entry == nil {
		return errors.New("transaction log entry cannot be nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Annotatef(err, "encode log entry of transaction '%s'", entry.TransactionID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tmp, err := os.CreateTemp(l.folder, "."+entry.TransactionID.String()+"-*.tmp")
	if err != nil {
		return errors.Annotatef(err, "write log entry of transaction '%s'", entry.TransactionID)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, l.path(entry.TransactionID))
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return errors.Annotatef(err, "write log entry of transaction '%s'", entry.TransactionID)
	}
	return nil
}

func (l *FileLog) DeleteTransaction(id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "delete log entry of transaction '%s'", id)
	}
	return nil
}

func (l *FileLog) GetTransactions() (map[uuid.UUID]*LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	files, err := os.ReadDir(l.folder)
	if err != nil {
		return nil, errors.Annotatef(err, "read transaction log folder '%s'", l.folder)
	}

	entries := make(map[uuid.UUID]*LogEntry, len(files))
	for _, f := range files {
		if f.IsDir() {
			log.Infof("Skipping folder '%s' found in transaction log '%s'", f.Name(), l.folder)
			continue
		}
		id, err := uuid.Parse(f.Name())
		if err != nil {
			log.Infof("Skipping file '%s' found in transaction log '%s', its name is not a transaction id", f.Name(), l.folder)
			continue
		}
		entry, err := l.readEntry(id)
		if err != nil {
			log.Infof("Skipping file '%s' found in transaction log '%s': %v", f.Name(), l.folder, err)
			continue
		}
		entries[id] = entry
	}
	return entries, nil
}

func (l *FileLog) readEntry(id uuid.UUID) (*LogEntry, error) {
	data, err := os.ReadFile(l.path(id))
	if err != nil {
		return nil, err
	}
	entry := &LogEntry{}
	if err = json.Unmarshal(data, entry); err != nil {
		return nil, err
	}
	if entry.TransactionID != id {
		return nil, fmt.Errorf("entry belongs to transaction '%s'", entry.TransactionID)
	}
	return entry, nil
}
