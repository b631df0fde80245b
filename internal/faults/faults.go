/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package faults defines the error taxonomy shared by all vsteer actions.
// Every fault is terminal for the invoking action; nothing in this package
// is ever retried automatically.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports an inventory object that could not be resolved
// on the vCenter server.
type NotFoundError struct {
	// Kind is the inventory object kind, e.g. "resource pool" or "cluster"
	Kind string
	// Name is the name that was looked up
	Name string
	// Server identifies the vCenter endpoint the lookup ran against
	Server string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found on server %s", e.Kind, e.Name, e.Server)
}

// NewNotFound creates a not found error for an inventory object.
func NewNotFound(kind, name, server string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name, Server: server}
}

// UnsafeChangeError reports hardware changes that cannot be applied while
// the VM is powered on. It carries every blocked change so the operator can
// power off once and retry once.
type UnsafeChangeError struct {
	// VM is the guest name the changes were computed for
	VM string
	// Blocked lists the description of every change that requires a shutdown
	Blocked []string
}

// Error implements the error interface.
func (e *UnsafeChangeError) Error() string {
	return fmt.Sprintf("guest VM %q is powered on, refusing to apply: %s",
		e.VM, strings.Join(e.Blocked, "; "))
}

// TaskFailureError reports a backend task that reached the error state.
type TaskFailureError struct {
	// Message is the classified failure message
	Message string
	// Cause contains the backend fault where one was reported
	Cause error
}

// Error implements the error interface.
func (e *TaskFailureError) Error() string {
	return e.Message
}

// Unwrap returns the underlying fault.
func (e *TaskFailureError) Unwrap() error {
	return e.Cause
}

// ConnectionError reports a failed handshake with the vCenter endpoint.
// No operation is attempted after it.
type ConnectionError struct {
	// Server is the vCenter endpoint
	Server string
	// User is the account the login ran as
	User string
	// Cause contains the underlying transport or authentication error
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to vCenter server at %s with user %s", e.Server, e.User)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsNotFound checks whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnsafeChange checks whether err is, or wraps, an UnsafeChangeError.
func IsUnsafeChange(err error) bool {
	var uc *UnsafeChangeError
	return errors.As(err, &uc)
}

// IsTaskFailure checks whether err is, or wraps, a TaskFailureError.
func IsTaskFailure(err error) bool {
	var tf *TaskFailureError
	return errors.As(err, &tf)
}

// IsConnection checks whether err is, or wraps, a ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
