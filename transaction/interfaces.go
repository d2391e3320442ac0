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

	"github.com/google/uuid"
)

type SessionTokenProvider interface {
	IsValid(sessionToken string) bool
	IsInstanceAdminOrSystem(sessionToken string) bool
}

// DatabaseTransactionProvider drives the resource manager behind one participant.
// A transaction recovered from the log reaches Commit and Rollback with a nil
// handle, the provider has to resolve it by id.
type DatabaseTransactionProvider interface {
	BeginTransaction(ctx context.Context, id uuid.UUID) (interface{}, error)
	PrepareTransaction(ctx context.Context, id uuid.UUID, handle interface{}) error
	CommitTransaction(ctx context.Context, id uuid.UUID, handle interface{}, twoPhase bool) error
	RollbackTransaction(ctx context.Context, id uuid.UUID, handle interface{}, twoPhase bool) error
}

// OperationExecutor runs named operations inside a transaction. The handle of
// the current transaction is available through HandleFromContext.
type OperationExecutor interface {
	ExecuteOperation(ctx context.Context, sessionToken string, operationName string, operationArguments []interface{}) (interface{}, error)
}

// TransactionParticipant is what a Coordinator needs from a participant, local or remote.
type TransactionParticipant interface {
	ParticipantID() string

	BeginTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error

	ExecuteOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
		operationName string, operationArguments []interface{}) (interface{}, error)

	PrepareTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error

	CommitTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error

	CommitRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error

	RollbackTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error

	RollbackRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error

	// RecoverTransactions lists the two-phase transactions waiting for the coordinator decision.
	RecoverTransactions(ctx context.Context, interactiveSessionKey, coordinatorKey string) ([]uuid.UUID, error)
}

// Sweeper is implemented by both node kinds and driven by a Watchdog.
type Sweeper interface {
	FinishFailedOrAbandonedTransactions(ctx context.Context)
}
