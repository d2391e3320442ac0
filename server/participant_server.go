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
	"context"
	"net"
	"net/http"
	"time"

	"github.com/endink/go-twopc/logging"
	"github.com/endink/go-twopc/telemetry"
	"github.com/endink/go-twopc/transaction"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var log = logging.GetLogger("server")

// TransactionLister is implemented by nodes that can report their transactions.
type TransactionLister interface {
	Transactions() []*transaction.TransactionInfo
}

// ParticipantServer exposes a participant over JSON on HTTP.
type ParticipantServer struct {
	participant transaction.TransactionParticipant
	engine      *gin.Engine
	srv         *http.Server
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func NewParticipantServer(participant transaction.TransactionParticipant) *ParticipantServer {
	s := &ParticipantServer{participant: participant}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), gzip.Gzip(gzip.DefaultCompression))

	engine.GET(PathParticipantID, func(c *gin.Context) {
		c.JSON(http.StatusOK, &ParticipantIDResponse{ParticipantID: participant.ParticipantID()})
	})
	engine.POST(PathBegin, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.BeginTransaction(ctx, id, r.SessionToken, r.InteractiveSessionKey, r.CoordinatorKey)
	}))
	engine.POST(PathExecute, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		result, err := participant.ExecuteOperation(ctx, id, r.SessionToken, r.InteractiveSessionKey, r.OperationName, r.OperationArguments)
		if err != nil {
			return nil, err
		}
		return &ExecuteResponse{Result: result}, nil
	}))
	engine.POST(PathPrepare, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.PrepareTransaction(ctx, id, r.SessionToken, r.InteractiveSessionKey, r.CoordinatorKey)
	}))
	engine.POST(PathCommit, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.CommitTransaction(ctx, id, r.SessionToken, r.InteractiveSessionKey)
	}))
	engine.POST(PathRollback, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.RollbackTransaction(ctx, id, r.SessionToken, r.InteractiveSessionKey)
	}))
	engine.POST(PathCommitRecovered, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.CommitRecoveredTransaction(ctx, id, r.InteractiveSessionKey, r.CoordinatorKey)
	}))
	engine.POST(PathRollbackRecovered, s.call(func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error) {
		return nil, participant.RollbackRecoveredTransaction(ctx, id, r.InteractiveSessionKey, r.CoordinatorKey)
	}))
	engine.POST(PathRecover, s.call(func(ctx context.Context, _ uuid.UUID, r *Request) (interface{}, error) {
		ids, err := participant.RecoverTransactions(ctx, r.InteractiveSessionKey, r.CoordinatorKey)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		return &RecoverResponse{TransactionIDs: ids}, nil
	}))
	if lister, ok := participant.(TransactionLister); ok {
		engine.GET(PathTransactions, func(c *gin.Context) {
			c.JSON(http.StatusOK, &TransactionsResponse{Transactions: lister.Transactions()})
		})
	}
	engine.GET(PathMetrics, gin.WrapH(telemetry.Handler()))

	s.engine = engine
	return s
}

type handlerFunc func(ctx context.Context, id uuid.UUID, r *Request) (interface{}, error)

func (s *ParticipantServer) call(fn handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			s.abort(c, transaction.NewError(transaction.KindUser, "Malformed request", err))
			return
		}
		id, err := req.id()
		if err != nil {
			s.abort(c, err)
			return
		}
		resp, err := fn(c.Request.Context(), id, &req)
		if err != nil {
			s.abort(c, err)
			return
		}
		if resp == nil {
			resp = gin.H{}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *ParticipantServer) abort(c *gin.Context, err error) {
	code, resp := newErrorResponse(err)
	c.AbortWithStatusJSON(code, resp)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *ParticipantServer) Handler() http.Handler {
	return s.engine
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *ParticipantServer) Serve(l net.Listener) error {
	s.srv = &http.Server{Handler: s.engine}
	log.Infof("Participant '%s' listening on %s", s.participant.ParticipantID(), l.Addr())
	err := s.srv.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *ParticipantServer) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

func (s *ParticipantServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
