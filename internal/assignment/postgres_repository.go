package assignment

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

// PostgresRepository implements Repository using pgxpool. The one-active-
// per-client invariant is backed by a partial unique index, so a racing
// create surfaces as ErrClientHasActiveAssignment rather than a second
// active row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const assignmentColumns = `id, client_id, template_id, start_date, renewal_date,
	custom_monthly_fee, notes, status, created_at, updated_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(
		&a.ID, &a.ClientID, &a.TemplateID, &a.StartDate, &a.RenewalDate,
		&a.CustomMonthlyFee, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("scanning assignment row: %w", err)
	}
	return &a, nil
}

// Create inserts a new assignment.
func (r *PostgresRepository) Create(ctx context.Context, a *Assignment) error {
	if a.Status == "" {
		a.Status = StatusActive
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_package_assignments
			(client_id, template_id, start_date, renewal_date, custom_monthly_fee, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		a.ClientID, a.TemplateID, a.StartDate, a.RenewalDate, a.CustomMonthlyFee, a.Notes, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrClientHasActiveAssignment
		}
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM client_package_assignments WHERE id = $1`, assignmentColumns)
	return scanAssignment(r.pool.QueryRow(ctx, query, id))
}

// GetActiveByClient retrieves the client's active assignment.
func (r *PostgresRepository) GetActiveByClient(ctx context.Context, clientID uuid.UUID) (*Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM client_package_assignments WHERE client_id = $1 AND status = 'active'`, assignmentColumns)
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return nil, ErrNoActiveAssignment
		}
		return nil, err
	}
	return a, nil
}

// ListActive retrieves all active assignments ordered by creation time.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM client_package_assignments WHERE status = 'active' ORDER BY created_at ASC`, assignmentColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		err := rows.Scan(
			&a.ID, &a.ClientID, &a.TemplateID, &a.StartDate, &a.RenewalDate,
			&a.CustomMonthlyFee, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignment rows: %w", err)
	}

	if assignments == nil {
		assignments = []Assignment{}
	}

	return assignments, nil
}

// ExpireActive marks the client's active assignment expired and returns its id.
func (r *PostgresRepository) ExpireActive(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE client_package_assignments
		SET status = 'expired', updated_at = NOW()
		WHERE client_id = $1 AND status = 'active'
		RETURNING id`, clientID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoActiveAssignment
		}
		return uuid.Nil, fmt.Errorf("expiring active assignment: %w", err)
	}
	return id, nil
}

// Update modifies non-nil fields on an assignment. Returns the updated assignment.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Assignment, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if fields.RenewalDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("renewal_date = $%d", argIdx))
		args = append(args, *fields.RenewalDate)
		argIdx++
	}
	if fields.CustomMonthlyFee != nil {
		setClauses = append(setClauses, fmt.Sprintf("custom_monthly_fee = $%d", argIdx))
		args = append(args, *fields.CustomMonthlyFee)
		argIdx++
	}
	if fields.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIdx))
		args = append(args, *fields.Notes)
		argIdx++
	}
	if fields.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *fields.Status)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE client_package_assignments
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, assignmentColumns)

	a, err := scanAssignment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrClientHasActiveAssignment
		}
		return nil, err
	}
	return a, nil
}
