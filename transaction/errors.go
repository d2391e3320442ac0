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
	"errors"
	"fmt"
)

// ErrorKind tells callers whether a failure was caused by their input, by the
// operation they asked to run, or by the transaction machinery itself.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUser
	KindOperation
)

var errorKindNames = map[ErrorKind]string{
	KindInternal:  "internal",
	KindUser:      "user",
	KindOperation: "operation",
}

var errorKindValues = map[string]ErrorKind{
	"internal":  KindInternal,
	"user":      KindUser,
	"operation": KindOperation,
}

func (k ErrorKind) String() string {
	if n, ok := errorKindNames[k]; ok {
		return n
	}
	return "internal"
}

// ParseErrorKind maps a kind name back, unknown names are internal.
func ParseErrorKind(s string) ErrorKind {
	if k, ok := errorKindValues[s]; ok {
		return k
	}
	return KindInternal
}

// Error is returned by every Participant and Coordinator call. Error() is the
// message alone, the cause stays reachable with errors.Unwrap or util.Cause.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }
func (e *Error) Cause() error  { return e.cause }

func newError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func userFailure(format string, args ...interface{}) *Error {
	return newError(KindUser, nil, format, args...)
}

func operationFailure(cause error) *Error {
	return newError(KindOperation, cause, "%s", cause.Error())
}

func internalFailure(cause error, format string, args ...interface{}) *Error {
	return newError(KindInternal, cause, format, args...)
}

// NewError rebuilds an error received from a remote node.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// IsUserFailure reports whether err, or an error it wraps, rejected the caller input.
func IsUserFailure(err error) bool {
	return kindOf(err) == KindUser
}

// IsOperationError reports whether err carries a failure raised by the operation executor.
func IsOperationError(err error) bool {
	return kindOf(err) == KindOperation
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}
