package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const typeColumns = `type_key, label, unit_label, hours_per_unit, created_at, updated_at`

func scanType(row pgx.Row) (*DeliverableType, error) {
	var dt DeliverableType
	err := row.Scan(&dt.TypeKey, &dt.Label, &dt.UnitLabel, &dt.HoursPerUnit, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("scanning deliverable type row: %w", err)
	}
	return &dt, nil
}

// Create inserts a new deliverable type.
func (r *PostgresRepository) Create(ctx context.Context, dt *DeliverableType) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deliverable_types (type_key, label, unit_label, hours_per_unit)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		dt.TypeKey, dt.Label, dt.UnitLabel, dt.HoursPerUnit,
	).Scan(&dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTypeKey
		}
		return fmt.Errorf("inserting deliverable type: %w", err)
	}
	return nil
}

// GetByKey retrieves a single deliverable type by its key.
func (r *PostgresRepository) GetByKey(ctx context.Context, typeKey string) (*DeliverableType, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliverable_types WHERE type_key = $1`, typeColumns)
	return scanType(r.pool.QueryRow(ctx, query, typeKey))
}

// List retrieves all deliverable types ordered by key.
func (r *PostgresRepository) List(ctx context.Context) ([]DeliverableType, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliverable_types ORDER BY type_key ASC`, typeColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing deliverable types: %w", err)
	}
	defer rows.Close()

	var types []DeliverableType
	for rows.Next() {
		var dt DeliverableType
		err := rows.Scan(&dt.TypeKey, &dt.Label, &dt.UnitLabel, &dt.HoursPerUnit, &dt.CreatedAt, &dt.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning deliverable type row: %w", err)
		}
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deliverable type rows: %w", err)
	}

	if types == nil {
		types = []DeliverableType{}
	}

	return types, nil
}

// Update modifies non-nil fields on a deliverable type. Returns the updated type.
func (r *PostgresRepository) Update(ctx context.Context, typeKey string, fields UpdateFields) (*DeliverableType, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if fields.Label != nil {
		setClauses = append(setClauses, fmt.Sprintf("label = $%d", argIdx))
		args = append(args, *fields.Label)
		argIdx++
	}
	if fields.UnitLabel != nil {
		setClauses = append(setClauses, fmt.Sprintf("unit_label = $%d", argIdx))
		args = append(args, *fields.UnitLabel)
		argIdx++
	}
	if fields.HoursPerUnit != nil {
		setClauses = append(setClauses, fmt.Sprintf("hours_per_unit = $%d", argIdx))
		args = append(args, *fields.HoursPerUnit)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByKey(ctx, typeKey)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, typeKey)

	query := fmt.Sprintf(`
		UPDATE deliverable_types
		SET %s
		WHERE type_key = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, typeColumns)

	return scanType(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes a deliverable type. Returns ErrTypeInUse if the type is
// still referenced by any package allocation.
func (r *PostgresRepository) Delete(ctx context.Context, typeKey string) error {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM package_allocations WHERE deliverable_type = $1`, typeKey,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking allocations for deliverable type: %w", err)
	}
	if count > 0 {
		return ErrTypeInUse
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM deliverable_types WHERE type_key = $1`, typeKey)
	if err != nil {
		return fmt.Errorf("deleting deliverable type: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTypeNotFound
	}

	return nil
}

// CreateCategory inserts a new service category.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *ServiceCategory) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO service_categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("inserting service category: %w", err)
	}
	return nil
}

// ListCategories retrieves all service categories ordered by name.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]ServiceCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM service_categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing service categories: %w", err)
	}
	defer rows.Close()

	var cats []ServiceCategory
	for rows.Next() {
		var c ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning service category row: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating service category rows: %w", err)
	}

	if cats == nil {
		cats = []ServiceCategory{}
	}

	return cats, nil
}
