// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Parameter keys of replies and framework events.
const (
	ParamStatus     wire.Key = "Status"
	ParamMessage    wire.Key = "Message"
	ParamStatusName wire.Key = "StatusName"
	ParamReason     wire.Key = "Reason"
)

// Operations every connection understands.
const (
	MethodDisconnect wire.Key = "Disconnect"
	MethodEcho       wire.Key = "Echo"
)

// Statuses shared by every tier. StatusOK is the empty key.
const (
	StatusOK                       wire.Key = ""
	StatusConnectException         wire.Key = "Error_ConnectException"
	StatusServerException          wire.Key = "Error_ServerException"
	StatusSerializationException   wire.Key = "Error_SerializationException"
	StatusMaterializationException wire.Key = "Error_MaterializationException"
)

// Messages attached to framework failures.
const (
	MessageNotCompleted       = "not completed"
	MessageNotEnqueued        = "not enqueued"
	MessageAwaitingDisconnect = "awaiting disconnect"
	MessageAwaitingConnect    = "awaiting connect"
	MessageDisconnected       = "disconnected"
	MessageCannotConnect      = "can't connect"
	MessageTimedOut           = "timed out"
)

// StatusError is a protocol failure: a status key and an optional
// human-readable message. Handlers return it from continuations to fail
// a call with a specific status; clients receive it for failed replies.
type StatusError struct {
	Status  wire.Key
	Message string
}

// Errorf returns a StatusError with a formatted message.
func Errorf(status wire.Key, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return string(e.Status)
	}
	return string(e.Status) + ": " + e.Message
}

// Response is the outcome of a Method call as seen by the caller.
type Response struct {
	Status     wire.Key
	Message    string
	StatusName string
	Params     wire.Map
}

// IsOK reports whether the call succeeded.
func (r Response) IsOK() bool { return r.Status == StatusOK }

// Err returns nil on success or the failure as a *StatusError.
func (r Response) Err() error {
	if r.IsOK() {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// Decode unmarshals the reply parameters into v.
func (r Response) Decode(v any) error {
	return wire.Unmarshal(r.Params, v)
}

// FailedResponse builds a local failure, such as a timeout or a dropped
// connection.
func FailedResponse(status wire.Key, message string) Response {
	return Response{
		Status:     status,
		Message:    message,
		StatusName: string(status),
		Params: wire.Map{
			ParamStatus:     wire.KeyValue(status),
			ParamMessage:    wire.String(message),
			ParamStatusName: wire.String(string(status)),
		},
	}
}

// ResponseFromParams reads a reply dictionary.
func ResponseFromParams(params wire.Map) Response {
	if params == nil {
		params = wire.Map{}
	}
	status, _ := params[ParamStatus].Key()
	message, _ := params.Str(ParamMessage)
	params[ParamStatusName] = wire.String(string(status))
	return Response{
		Status:     status,
		Message:    message,
		StatusName: string(status),
		Params:     params,
	}
}
