// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"curator/internal/metrics"
)

// ValidationError reports a malformed request: bad ids, out-of-range
// orders, an item outside the scope or an illegal parent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AuthorizationError reports an actor acting on a hierarchy they do not own.
type AuthorizationError struct {
	ActorID uuid.UUID
	OwnerID uuid.UUID
	NodeID  uuid.UUID
}

func (e AuthorizationError) Error() string {
	return "only the owner of the container may change it"
}

// NotFoundError reports an id absent from the store.
type NotFoundError struct {
	ID uuid.UUID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

// FailureKind classifies a failed Result.
type FailureKind string

const (
	FailureValidation   FailureKind = "validation"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureNotFound     FailureKind = "not_found"
	FailureInternal     FailureKind = "internal"
)

// Failure is the structured description of a rejected mutation.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Result is returned by every engine operation. Errors never cross the
// engine boundary any other way.
type Result struct {
	OK      bool     `json:"ok"`
	Failure *Failure `json:"error,omitempty"`
}

// Err returns the underlying error of a failed result, or nil.
func (r Result) Err() error {
	if r.OK || r.Failure == nil {
		return nil
	}
	if r.Failure.Err != nil {
		return r.Failure.Err
	}
	return errors.New(r.Failure.Message)
}

func ok() Result {
	return Result{OK: true}
}

// fail converts an error into a failed Result.
func fail(err error) Result {
	var (
		verr ValidationError
		aerr AuthorizationError
		nerr NotFoundError
	)
	f := &Failure{Err: err, Message: err.Error()}
	switch {
	case errors.As(err, &verr):
		f.Kind = FailureValidation
	case errors.As(err, &aerr):
		f.Kind = FailureUnauthorized
	case errors.As(err, &nerr):
		f.Kind = FailureNotFound
	default:
		f.Kind = FailureInternal
		f.Message = "internal error"
	}
	return Result{Failure: f}
}

// metricResult maps a result onto the mutation counter label.
func metricResult(r Result) string {
	if r.OK {
		return metrics.ResultOK
	}
	switch r.Failure.Kind {
	case FailureValidation:
		return metrics.ResultValidation
	case FailureUnauthorized:
		return metrics.ResultUnauthorized
	case FailureNotFound:
		return metrics.ResultNotFound
	}
	return metrics.ResultError
}
