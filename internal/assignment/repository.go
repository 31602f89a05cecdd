package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAssignmentNotFound is returned when an assignment is not found.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrNoActiveAssignment is returned when a client has no active assignment.
var ErrNoActiveAssignment = errors.New("client has no active assignment")

// ErrClientHasActiveAssignment is returned when creating an active
// assignment for a client that already has one.
var ErrClientHasActiveAssignment = errors.New("client already has an active assignment")

// PartialFailureError reports that a prior assignment was expired but the
// replacement could not be completed, leaving the client without an active
// package. Callers recover by retrying the creation step only; the expired
// assignment must not be expired again.
type PartialFailureError struct {
	ClientID            uuid.UUID
	ExpiredAssignmentID uuid.UUID
	Err                 error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("assignment switch for client %s incomplete after expiring %s: %v",
		e.ClientID, e.ExpiredAssignmentID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Repository provides persistence for client package assignments.
type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	GetActiveByClient(ctx context.Context, clientID uuid.UUID) (*Assignment, error)
	ListActive(ctx context.Context) ([]Assignment, error)

	// ExpireActive marks the client's active assignment expired and
	// returns its id, or ErrNoActiveAssignment.
	ExpireActive(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error)

	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Assignment, error)
}
