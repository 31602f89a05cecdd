package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

const templateColumns = `id, name, tier, plan_type, category, monthly_fee, currency,
	platform_count, correction_limit, features, recommended, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(
		&t.ID, &t.Name, &t.Tier, &t.PlanType, &t.Category,
		&t.MonthlyFee, &t.Currency, &t.PlatformCount, &t.CorrectionLimit,
		&t.Features, &t.Recommended, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scanning template row: %w", err)
	}
	return &t, nil
}

// Create inserts a template and its allocations in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, t *Template) error {
	allocs, err := ValidateAllocations(t.Allocations)
	if err != nil {
		return err
	}
	t.Allocations = allocs

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO package_templates
			(name, tier, plan_type, category, monthly_fee, currency,
			 platform_count, correction_limit, features, recommended)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		t.Name, t.Tier, t.PlanType, t.Category, t.MonthlyFee, t.Currency,
		t.PlatformCount, t.CorrectionLimit, t.Features, t.Recommended,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTemplateName
		}
		return fmt.Errorf("inserting template: %w", err)
	}

	if err := insertAllocations(ctx, tx, t.ID, t.Allocations); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing template: %w", err)
	}
	return nil
}

func insertAllocations(ctx context.Context, tx pgx.Tx, templateID uuid.UUID, allocs []Allocation) error {
	for i, a := range allocs {
		_, err := tx.Exec(ctx, `
			INSERT INTO package_allocations
				(template_id, deliverable_type, total_allocated, unit_label, warning_threshold, auto_deduction, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			templateID, a.DeliverableType, a.TotalAllocated, a.UnitLabel, a.WarningThreshold, a.AutoDeduction, i,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case "23505":
					return ErrDuplicateAllocation
				case "23503":
					return fmt.Errorf("%w: %s", ErrUnknownAllocationType, a.DeliverableType)
				}
			}
			return fmt.Errorf("inserting allocation %q: %w", a.DeliverableType, err)
		}
	}
	return nil
}

func (r *PostgresRepository) loadAllocations(ctx context.Context, templateID uuid.UUID) ([]Allocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT deliverable_type, total_allocated, unit_label, warning_threshold, auto_deduction
		FROM package_allocations
		WHERE template_id = $1
		ORDER BY position ASC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("listing allocations: %w", err)
	}
	defer rows.Close()

	var allocs []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.DeliverableType, &a.TotalAllocated, &a.UnitLabel, &a.WarningThreshold, &a.AutoDeduction); err != nil {
			return nil, fmt.Errorf("scanning allocation row: %w", err)
		}
		allocs = append(allocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating allocation rows: %w", err)
	}

	if allocs == nil {
		allocs = []Allocation{}
	}

	return allocs, nil
}

// GetByID retrieves a template with its allocations.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM package_templates WHERE id = $1`, templateColumns)
	t, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	t.Allocations, err = r.loadAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves all templates with their allocations, ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM package_templates ORDER BY created_at ASC`, templateColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		err := rows.Scan(
			&t.ID, &t.Name, &t.Tier, &t.PlanType, &t.Category,
			&t.MonthlyFee, &t.Currency, &t.PlatformCount, &t.CorrectionLimit,
			&t.Features, &t.Recommended, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template rows: %w", err)
	}

	for i := range templates {
		templates[i].Allocations, err = r.loadAllocations(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if templates == nil {
		templates = []Template{}
	}

	return templates, nil
}

// Update modifies non-nil fields on a template. When Allocations is set the
// existing allocation rows are replaced in the same transaction.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Template, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.Tier != nil {
		add("tier", *fields.Tier)
	}
	if fields.PlanType != nil {
		add("plan_type", *fields.PlanType)
	}
	if fields.Category != nil {
		add("category", *fields.Category)
	}
	if fields.MonthlyFee != nil {
		add("monthly_fee", *fields.MonthlyFee)
	}
	if fields.Currency != nil {
		add("currency", *fields.Currency)
	}
	if fields.PlatformCount != nil {
		add("platform_count", *fields.PlatformCount)
	}
	if fields.CorrectionLimit != nil {
		add("correction_limit", *fields.CorrectionLimit)
	}
	if fields.Features != nil {
		add("features", *fields.Features)
	}
	if fields.Recommended != nil {
		add("recommended", *fields.Recommended)
	}

	var newAllocs []Allocation
	if fields.Allocations != nil {
		validated, err := ValidateAllocations(*fields.Allocations)
		if err != nil {
			return nil, err
		}
		newAllocs = validated
	}

	if len(setClauses) == 0 && fields.Allocations == nil {
		return r.GetByID(ctx, id)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = NOW()")
		args = append(args, id)

		query := fmt.Sprintf(`UPDATE package_templates SET %s WHERE id = $%d RETURNING id`,
			strings.Join(setClauses, ", "), argIdx)

		var updatedID uuid.UUID
		if err := tx.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTemplateNotFound
			}
			return nil, fmt.Errorf("updating template: %w", err)
		}
	}

	if fields.Allocations != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM package_allocations WHERE template_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clearing allocations: %w", err)
		}
		if err := insertAllocations(ctx, tx, id, newAllocs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing template update: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a template. Returns ErrTemplateInUse if any client
// assignment still references it.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM client_package_assignments WHERE template_id = $1`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking assignments for template: %w", err)
	}
	if count > 0 {
		return ErrTemplateInUse
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM package_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}

	return nil
}
