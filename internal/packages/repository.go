package packages

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTemplateNotFound is returned when a package template is not found.
var ErrTemplateNotFound = errors.New("package template not found")

// ErrDuplicateTemplateName is returned when a template with the same name already exists.
var ErrDuplicateTemplateName = errors.New("package template name already exists")

// ErrDuplicateAllocation is returned when a template lists the same
// deliverable type more than once.
var ErrDuplicateAllocation = errors.New("duplicate deliverable type in template allocations")

// ErrUnknownAllocationType is returned when an allocation references a
// deliverable type that does not exist in the catalog.
var ErrUnknownAllocationType = errors.New("allocation references unknown deliverable type")

// ErrTemplateInUse is returned when attempting to delete a template that
// still has client assignments.
var ErrTemplateInUse = errors.New("package template has client assignments")

// Repository provides CRUD operations on package templates and their allocations.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	List(ctx context.Context) ([]Template, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ValidateAllocations rejects duplicate deliverable types and fills in the
// default warning threshold on unset lines.
func ValidateAllocations(allocs []Allocation) ([]Allocation, error) {
	seen := make(map[string]bool, len(allocs))
	out := make([]Allocation, 0, len(allocs))
	for _, a := range allocs {
		if seen[a.DeliverableType] {
			return nil, ErrDuplicateAllocation
		}
		seen[a.DeliverableType] = true
		if a.WarningThreshold == 0 {
			a.WarningThreshold = DefaultWarningThreshold
		}
		out = append(out, a)
	}
	return out, nil
}
