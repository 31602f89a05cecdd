package catalog

import (
	"context"
	"errors"
)

// ErrTypeNotFound is returned when a deliverable type is not found.
var ErrTypeNotFound = errors.New("deliverable type not found")

// ErrDuplicateTypeKey is returned when a deliverable type with the same key already exists.
var ErrDuplicateTypeKey = errors.New("deliverable type key already exists")

// ErrDuplicateCategory is returned when a service category with the same name already exists.
var ErrDuplicateCategory = errors.New("service category name already exists")

// ErrTypeInUse is returned when attempting to delete a deliverable type
// that is still referenced by a package allocation.
var ErrTypeInUse = errors.New("deliverable type is referenced by package allocations")

// Repository provides access to deliverable types and service categories.
type Repository interface {
	Create(ctx context.Context, dt *DeliverableType) error
	GetByKey(ctx context.Context, typeKey string) (*DeliverableType, error)
	List(ctx context.Context) ([]DeliverableType, error)
	Update(ctx context.Context, typeKey string, fields UpdateFields) (*DeliverableType, error)
	Delete(ctx context.Context, typeKey string) error

	CreateCategory(ctx context.Context, c *ServiceCategory) error
	ListCategories(ctx context.Context) ([]ServiceCategory, error)
}

// Hours builds an HoursTable from all registered deliverable types.
func Hours(ctx context.Context, repo Repository) (HoursTable, error) {
	types, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	table := make(HoursTable, len(types))
	for _, dt := range types {
		table[dt.TypeKey] = dt.HoursPerUnit
	}
	return table, nil
}
