package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool. Confirmation
// serializes per usage record through the row-level lock taken by the
// conditional UPDATE; there is no read-then-write pair anywhere.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const usageColumns = `assignment_id, deliverable_type, used, total, warning_threshold, updated_at`

const eventColumns = `id, assignment_id, deliverable_type, quantity, status, requested_by, requested_at, resolved_at`

func scanUsage(row pgx.Row) (*UsageRecord, error) {
	var u UsageRecord
	err := row.Scan(&u.AssignmentID, &u.DeliverableType, &u.Used, &u.Total, &u.WarningThreshold, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUsageRecordNotFound
		}
		return nil, fmt.Errorf("scanning usage record row: %w", err)
	}
	return &u, nil
}

func scanEvent(row pgx.Row) (*DeductionEvent, error) {
	var ev DeductionEvent
	err := row.Scan(&ev.ID, &ev.AssignmentID, &ev.DeliverableType, &ev.Quantity, &ev.Status, &ev.RequestedBy, &ev.RequestedAt, &ev.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("scanning deduction event row: %w", err)
	}
	return &ev, nil
}

// InitializeUsage inserts all usage rows for an assignment in one
// transaction. Any existing row for the assignment fails the whole call.
func (r *PostgresRepository) InitializeUsage(ctx context.Context, records []UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	assignmentID := records[0].AssignmentID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE assignment_id = $1`, assignmentID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking existing usage rows: %w", err)
	}
	if count > 0 {
		return ErrUsageAlreadyInitialized
	}

	for _, u := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO usage_records (assignment_id, deliverable_type, used, total, warning_threshold)
			VALUES ($1, $2, $3, $4, $5)`,
			u.AssignmentID, u.DeliverableType, u.Used, u.Total, u.WarningThreshold,
		)
		if err != nil {
			return fmt.Errorf("inserting usage record %q: %w", u.DeliverableType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing usage initialization: %w", err)
	}
	return nil
}

// ListUsage retrieves all usage records for an assignment.
func (r *PostgresRepository) ListUsage(ctx context.Context, assignmentID uuid.UUID) ([]UsageRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM usage_records WHERE assignment_id = $1 ORDER BY deliverable_type ASC`, usageColumns)

	rows, err := r.pool.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("listing usage records: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var u UsageRecord
		if err := rows.Scan(&u.AssignmentID, &u.DeliverableType, &u.Used, &u.Total, &u.WarningThreshold, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning usage record row: %w", err)
		}
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage record rows: %w", err)
	}

	if records == nil {
		records = []UsageRecord{}
	}

	return records, nil
}

// GetUsage retrieves one usage record.
func (r *PostgresRepository) GetUsage(ctx context.Context, assignmentID uuid.UUID, deliverableType string) (*UsageRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM usage_records WHERE assignment_id = $1 AND deliverable_type = $2`, usageColumns)
	return scanUsage(r.pool.QueryRow(ctx, query, assignmentID, deliverableType))
}

// CreateEvent records a pending deduction after verifying the target
// usage record exists.
func (r *PostgresRepository) CreateEvent(ctx context.Context, ev *DeductionEvent) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM usage_records WHERE assignment_id = $1 AND deliverable_type = $2)`,
		ev.AssignmentID, ev.DeliverableType,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking usage record: %w", err)
	}
	if !exists {
		return ErrUsageRecordNotFound
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO usage_deduction_events (assignment_id, deliverable_type, quantity, status, requested_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, requested_at`,
		ev.AssignmentID, ev.DeliverableType, ev.Quantity, StatusPending, ev.RequestedBy,
	).Scan(&ev.ID, &ev.RequestedAt)
	if err != nil {
		return fmt.Errorf("inserting deduction event: %w", err)
	}
	ev.Status = StatusPending
	return nil
}

// GetEvent retrieves a deduction event by id.
func (r *PostgresRepository) GetEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM usage_deduction_events WHERE id = $1`, eventColumns)
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// ConfirmEvent transitions pending -> confirmed and increments the usage
// record, all inside one transaction. Depletion is re-checked here, at
// confirmation time: the conditional UPDATE only matches a record with
// remaining quota, so deductions confirmed since the request was made are
// accounted for.
func (r *PostgresRepository) ConfirmEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT %s FROM usage_deduction_events WHERE id = $1 FOR UPDATE`, eventColumns)
	ev, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if ev.Status != StatusPending {
		return nil, fmt.Errorf("%w: event is %s", ErrInvalidEventState, ev.Status)
	}

	result, err := tx.Exec(ctx, `
		UPDATE usage_records
		SET used = used + $3, updated_at = NOW()
		WHERE assignment_id = $1 AND deliverable_type = $2 AND total - used > 0`,
		ev.AssignmentID, ev.DeliverableType, ev.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage record: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the record is gone or it is depleted; the event stays
		// pending either way.
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM usage_records WHERE assignment_id = $1 AND deliverable_type = $2)`,
			ev.AssignmentID, ev.DeliverableType,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("checking usage record: %w", err)
		}
		if !exists {
			return nil, ErrUsageRecordNotFound
		}
		return nil, ErrQuotaDepleted
	}

	query = fmt.Sprintf(`
		UPDATE usage_deduction_events
		SET status = $2, resolved_at = NOW()
		WHERE id = $1
		RETURNING %s`, eventColumns)
	ev, err = scanEvent(tx.QueryRow(ctx, query, id, StatusConfirmed))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing confirmation: %w", err)
	}
	return ev, nil
}

// CancelEvent transitions pending -> cancelled. Cancelling a cancelled
// event returns the terminal event unchanged; a confirmed event refuses.
func (r *PostgresRepository) CancelEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT %s FROM usage_deduction_events WHERE id = $1 FOR UPDATE`, eventColumns)
	ev, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	switch ev.Status {
	case StatusCancelled:
		return ev, nil
	case StatusConfirmed:
		return nil, fmt.Errorf("%w: event is confirmed", ErrInvalidEventState)
	}

	query = fmt.Sprintf(`
		UPDATE usage_deduction_events
		SET status = $2, resolved_at = NOW()
		WHERE id = $1
		RETURNING %s`, eventColumns)
	ev, err = scanEvent(tx.QueryRow(ctx, query, id, StatusCancelled))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing cancellation: %w", err)
	}
	return ev, nil
}

// OverrideUsage writes one counter directly.
func (r *PostgresRepository) OverrideUsage(ctx context.Context, assignmentID uuid.UUID, deliverableType string, field OverrideField, value int) (*UsageRecord, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unknown override field %q", field)
	}
	if value < 0 {
		return nil, ErrNegativeValue
	}

	query := fmt.Sprintf(`
		UPDATE usage_records
		SET %s = $3, updated_at = NOW()
		WHERE assignment_id = $1 AND deliverable_type = $2
		RETURNING %s`, string(field), usageColumns)

	return scanUsage(r.pool.QueryRow(ctx, query, assignmentID, deliverableType, value))
}
