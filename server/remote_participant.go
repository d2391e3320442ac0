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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/endink/go-twopc/transaction"
	"github.com/google/uuid"
	"github.com/pingcap/errors"
)

const contentTypeJSON = "application/json"

type ClientOption func(p *RemoteParticipant)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(p *RemoteParticipant) {
		p.client.Timeout = timeout
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(p *RemoteParticipant) {
		p.client.Transport = transport
	}
}

// RemoteParticipant calls a ParticipantServer. Errors answered by the server
// come back as *transaction.Error with the same kind and message.
type RemoteParticipant struct {
	participantID string
	origin        string
	client        *http.Client
}

var _ transaction.TransactionParticipant = (*RemoteParticipant)(nil)

func NewRemoteParticipant(participantID string, origin string, opts ...ClientOption) *RemoteParticipant {
	p := &RemoteParticipant{
		participantID: participantID,
		origin:        strings.TrimRight(origin, "/"),
		client:        &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RemoteParticipant) ParticipantID() string {
	return p.participantID
}

// Verify checks the server answers under the configured participant id.
func (p *RemoteParticipant) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.origin+PathParticipantID, nil)
	if err != nil {
		return err
	}
	var resp ParticipantIDResponse
	if err := p.do(req, &resp); err != nil {
		return err
	}
	if resp.ParticipantID != p.participantID {
		return fmt.Errorf("participant at '%s' has id '%s', expected '%s'", p.origin, resp.ParticipantID, p.participantID)
	}
	return nil
}

func (p *RemoteParticipant) post(ctx context.Context, path string, body *Request, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Trace(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.origin+path, bytes.NewReader(b))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	return p.do(req, out)
}

func (p *RemoteParticipant) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Annotatef(err, "participant '%s' unreachable", p.participantID)
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Annotatef(err, "read response of participant '%s'", p.participantID)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var er ErrorResponse
		if jsonErr := json.Unmarshal(b, &er); jsonErr != nil || er.Message == "" {
			return fmt.Errorf("participant '%s' answered status %d: %s", p.participantID, resp.StatusCode, string(b))
		}
		return er.toError()
	}
	if out == nil {
		return nil
	}
	return errors.Annotatef(json.Unmarshal(b, out), "decode response of participant '%s'", p.participantID)
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func (p *RemoteParticipant) BeginTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	return p.post(ctx, PathBegin, &Request{
		TransactionID:         idString(id),
		SessionToken:          sessionToken,
		InteractiveSessionKey: interactiveSessionKey,
		CoordinatorKey:        coordinatorKey,
	}, nil)
}

func (p *RemoteParticipant) ExecuteOperation(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string,
	operationName string, operationArguments []interface{}) (interface{}, error) {
	var resp ExecuteResponse
	err := p.post(ctx, PathExecute, &Request{
		TransactionID:         idString(id),
		SessionToken:          sessionToken,
		InteractiveSessionKey: interactiveSessionKey,
		OperationName:         operationName,
		OperationArguments:    operationArguments,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (p *RemoteParticipant) PrepareTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey, coordinatorKey string) error {
	return p.post(ctx, PathPrepare, &Request{
		TransactionID:         idString(id),
		SessionToken:          sessionToken,
		InteractiveSessionKey: interactiveSessionKey,
		CoordinatorKey:        coordinatorKey,
	}, nil)
}

func (p *RemoteParticipant) CommitTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	return p.post(ctx, PathCommit, &Request{
		TransactionID:         idString(id),
		SessionToken:          sessionToken,
		InteractiveSessionKey: interactiveSessionKey,
	}, nil)
}

func (p *RemoteParticipant) CommitRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error {
	return p.post(ctx, PathCommitRecovered, &Request{
		TransactionID:         idString(id),
		InteractiveSessionKey: interactiveSessionKey,
		CoordinatorKey:        coordinatorKey,
	}, nil)
}

func (p *RemoteParticipant) RollbackTransaction(ctx context.Context, id uuid.UUID, sessionToken, interactiveSessionKey string) error {
	return p.post(ctx, PathRollback, &Request{
		TransactionID:         idString(id),
		SessionToken:          sessionToken,
		InteractiveSessionKey: interactiveSessionKey,
	}, nil)
}

func (p *RemoteParticipant) RollbackRecoveredTransaction(ctx context.Context, id uuid.UUID, interactiveSessionKey, coordinatorKey string) error {
	return p.post(ctx, PathRollbackRecovered, &Request{
		TransactionID:         idString(id),
		InteractiveSessionKey: interactiveSessionKey,
		CoordinatorKey:        coordinatorKey,
	}, nil)
}

func (p *RemoteParticipant) RecoverTransactions(ctx context.Context, interactiveSessionKey, coordinatorKey string) ([]uuid.UUID, error) {
	var resp RecoverResponse
	err := p.post(ctx, PathRecover, &Request{
		InteractiveSessionKey: interactiveSessionKey,
		CoordinatorKey:        coordinatorKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.TransactionIDs, nil
}
