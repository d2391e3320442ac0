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

package server

import (
	"errors"
	"net/http"

	"github.com/endink/go-twopc/transaction"
	"github.com/endink/go-twopc/util"
	"github.com/google/uuid"
)

const (
	PathParticipantID     = "/participant/id"
	PathBegin             = "/participant/begin"
	PathExecute           = "/participant/execute"
	PathPrepare           = "/participant/prepare"
	PathCommit            = "/participant/commit"
	PathRollback          = "/participant/rollback"
	PathCommitRecovered   = "/participant/commit-recovered"
	PathRollbackRecovered = "/participant/rollback-recovered"
	PathRecover           = "/participant/recover"
	PathTransactions      = "/participant/transactions"
	PathMetrics           = "/metrics"
)

// Request carries the arguments of every participant call, unused fields stay empty.
type Request struct {
	TransactionID         string        `json:"transactionId,omitempty"`
	SessionToken          string        `json:"sessionToken,omitempty"`
	InteractiveSessionKey string        `json:"interactiveSessionKey,omitempty"`
	CoordinatorKey        string        `json:"coordinatorKey,omitempty"`
	OperationName         string        `json:"operationName,omitempty"`
	OperationArguments    []interface{} `json:"operationArguments"`
}

func (r *Request) id() (uuid.UUID, error) {
	if r.TransactionID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(r.TransactionID)
	if err != nil {
		return uuid.Nil, transaction.NewError(transaction.KindUser, "Invalid transaction id '"+r.TransactionID+"'", err)
	}
	return id, nil
}

type ExecuteResponse struct {
	Result interface{} `json:"result"`
}

type RecoverResponse struct {
	TransactionIDs []uuid.UUID `json:"transactionIds"`
}

type ParticipantIDResponse struct {
	ParticipantID string `json:"participantId"`
}

type TransactionsResponse struct {
	Transactions []*transaction.TransactionInfo `json:"transactions"`
}

// ErrorResponse is the body of every failed call. Causes lists the messages
// of the cause chain below Message, outermost first.
type ErrorResponse struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Causes  []string `json:"causes,omitempty"`
}

func statusOf(kind transaction.ErrorKind) int {
	switch kind {
	case transaction.KindUser:
		return http.StatusBadRequest
	case transaction.KindOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) (int, *ErrorResponse) {
	var te *transaction.Error
	if !errors.As(err, &te) {
		te = transaction.NewError(transaction.KindInternal, err.Error(), nil)
	}
	resp := &ErrorResponse{Kind: te.Kind.String(), Message: te.Message}
	for _, cause := range util.CauseChain(te.Cause()) {
		resp.Causes = append(resp.Causes, cause.Error())
	}
	return statusOf(te.Kind), resp
}

// remoteCause stands for an error raised on the other side of the wire.
type remoteCause struct {
	msg   string
	cause error
}

func (e *remoteCause) Error() string { return e.msg }
func (e *remoteCause) Unwrap() error { return e.cause }

func (r *ErrorResponse) toError() *transaction.Error {
	var cause error
	for i := len(r.Causes) - 1; i >= 0; i-- {
		cause = &remoteCause{msg: r.Causes[i], cause: cause}
	}
	return transaction.NewError(transaction.ParseErrorKind(r.Kind), r.Message, cause)
}
