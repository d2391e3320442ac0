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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/endink/go-twopc/testkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(status Status, participantIDs ...string) *LogEntry {
	return &LogEntry{
		TransactionID:       uuid.New(),
		TwoPhaseTransaction: true,
		ParticipantIDs:      participantIDs,
		TransactionStatus:   status,
		LastAccessedDate:    time.Now().Truncate(time.Millisecond),
	}
}

func TestFileLogFolder(t *testing.T) {
	root := t.TempDir()
	txLog := newTestLog(t, root, "kv")
	assert.Equal(t, filepath.Join(root, "kv"), txLog.Folder())

	info, err := os.Stat(txLog.Folder())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileLogFolderIsAFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kv"), []byte("x"), 0644))

	_, err := NewFileLog(root, "kv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestFileLogRoundTrip(t *testing.T) {
	txLog := newTestLog(t, t.TempDir(), "coordinator")

	first := newEntry(StatusBeginFinished, "p2", "p1")
	second := newEntry(StatusPrepareStarted)
	second.TwoPhaseTransaction = false
	require.NoError(t, txLog.LogTransaction(first))
	require.NoError(t, txLog.LogTransaction(second))

	entries, err := txLog.GetTransactions()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	testkit.MustMatch(t, first, entries[first.TransactionID], "first entry")
	testkit.MustMatch(t, second, entries[second.TransactionID], "second entry")

	updated := first.Clone()
	updated.TransactionStatus = StatusCommitStarted
	updated.ParticipantIDs = []string{"p2"}
	require.NoError(t, txLog.LogTransaction(updated))

	entries, err = txLog.GetTransactions()
	require.NoError(t, err)
	testkit.MustMatch(t, updated, entries[first.TransactionID], "updated entry")
	assert.Equal(t, []string{"p2", "p1"}, first.ParticipantIDs, "clone must not share participants")

	require.NoError(t, txLog.DeleteTransaction(first.TransactionID))
	require.NoError(t, txLog.DeleteTransaction(first.TransactionID), "deleting twice is fine")

	entries, err = txLog.GetTransactions()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, entries, second.TransactionID)
}

func TestFileLogEntryFormat(t *testing.T) {
	txLog := newTestLog(t, t.TempDir(), "coordinator")
	entry := newEntry(StatusPrepareFinished, "p1")
	require.NoError(t, txLog.LogTransaction(entry))

	data, err := os.ReadFile(filepath.Join(txLog.Folder(), entry.TransactionID.String()))
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, entry.TransactionID.String(), raw["transactionId"])
	assert.Equal(t, true, raw["twoPhaseTransaction"])
	assert.Equal(t, []interface{}{"p1"}, raw["participantIds"])
	assert.Equal(t, "PREPARE_FINISHED", raw["transactionStatus"])
	assert.Contains(t, raw, "lastAccessedDate")
}

func TestFileLogSkipsUnreadableEntries(t *testing.T) {
	txLog := newTestLog(t, t.TempDir(), "kv")
	good := newEntry(StatusBeginFinished)
	require.NoError(t, txLog.LogTransaction(good))

	folder := txLog.Folder()
	require.NoError(t, os.Mkdir(filepath.Join(folder, uuid.New().String()), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "not-a-uuid"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, uuid.New().String()), []byte("{broken"), 0644))

	other := newEntry(StatusBeginFinished)
	data, err := json.Marshal(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(folder, uuid.New().String()), data, 0644))

	unknown := newEntry(StatusBeginFinished)
	data = []byte(`{"transactionId":"` + unknown.TransactionID.String() + `","transactionStatus":"SLEEPING"}`)
	require.NoError(t, os.WriteFile(filepath.Join(folder, unknown.TransactionID.String()), data, 0644))

	entries, err := txLog.GetTransactions()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries, good.TransactionID)
}

func TestFileLogLeavesNoTempFiles(t *testing.T) {
	txLog := newTestLog(t, t.TempDir(), "kv")
	entry := newEntry(StatusBeginStarted)
	for _, s := range []Status{StatusBeginStarted, StatusBeginFinished, StatusPrepareStarted} {
		entry.TransactionStatus = s
		require.NoError(t, txLog.LogTransaction(entry))
	}

	files, err := os.ReadDir(txLog.Folder())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, entry.TransactionID.String(), files[0].Name())
}
