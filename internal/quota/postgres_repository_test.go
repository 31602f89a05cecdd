package quota

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdesk/packdesk/internal/database"
	"github.com/packdesk/packdesk/migrations"
)

// setupTestPool connects to the database named by TEST_DATABASE_URL, applies
// migrations, and truncates the engine tables. Tests skip when unset.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("skipping: TEST_DATABASE_URL not set")
	}

	require.NoError(t, database.Migrate(url, migrations.FS))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `
		TRUNCATE usage_deduction_events, usage_records,
			client_package_assignments, package_allocations,
			package_templates, deliverable_types CASCADE`)
	require.NoError(t, err)

	return pool
}

// seedAssignment inserts the catalog type, template, and assignment rows a
// usage record depends on, and returns the assignment id.
func seedAssignment(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO deliverable_types (type_key, label, unit_label, hours_per_unit)
		VALUES ('static_post', 'Static Post', 'posts', 2)
		ON CONFLICT (type_key) DO NOTHING`)
	require.NoError(t, err)

	var templateID uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO package_templates (name, tier, plan_type)
		VALUES ('Growth ' || gen_random_uuid()::text, 'standard', 'monthly')
		RETURNING id`).Scan(&templateID)
	require.NoError(t, err)

	var assignmentID uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO client_package_assignments (client_id, template_id, start_date)
		VALUES ($1, $2, CURRENT_DATE)
		RETURNING id`, uuid.New(), templateID).Scan(&assignmentID)
	require.NoError(t, err)

	return assignmentID
}

func TestPostgresInitializeUsage(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	records := []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 10, WarningThreshold: 20},
	}

	require.NoError(t, repo.InitializeUsage(ctx, records))

	err := repo.InitializeUsage(ctx, records)
	assert.ErrorIs(t, err, ErrUsageAlreadyInitialized)

	got, err := repo.GetUsage(ctx, assignmentID, "static_post")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Used)
	assert.Equal(t, 10, got.Total)
}

func TestPostgresEventLifecycle(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	require.NoError(t, repo.InitializeUsage(ctx, []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 2, WarningThreshold: 20},
	}))

	ev := &DeductionEvent{
		AssignmentID:    assignmentID,
		DeliverableType: "static_post",
		Quantity:        1,
		RequestedBy:     "pm@agency.test",
	}
	require.NoError(t, repo.CreateEvent(ctx, ev))
	assert.Equal(t, StatusPending, ev.Status)

	confirmed, err := repo.ConfirmEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ResolvedAt)

	_, err = repo.ConfirmEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrInvalidEventState)

	got, err := repo.GetUsage(ctx, assignmentID, "static_post")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Used)
}

func TestPostgresConfirmDepleted(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	require.NoError(t, repo.InitializeUsage(ctx, []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 1, WarningThreshold: 20},
	}))

	first := &DeductionEvent{AssignmentID: assignmentID, DeliverableType: "static_post", Quantity: 1, RequestedBy: "pm"}
	require.NoError(t, repo.CreateEvent(ctx, first))
	second := &DeductionEvent{AssignmentID: assignmentID, DeliverableType: "static_post", Quantity: 1, RequestedBy: "pm"}
	require.NoError(t, repo.CreateEvent(ctx, second))

	_, err := repo.ConfirmEvent(ctx, first.ID)
	require.NoError(t, err)

	_, err = repo.ConfirmEvent(ctx, second.ID)
	assert.ErrorIs(t, err, ErrQuotaDepleted)

	// The refused event stays pending.
	got, err := repo.GetEvent(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestPostgresCancelIdempotent(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	require.NoError(t, repo.InitializeUsage(ctx, []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 5, WarningThreshold: 20},
	}))

	ev := &DeductionEvent{AssignmentID: assignmentID, DeliverableType: "static_post", Quantity: 1, RequestedBy: "pm"}
	require.NoError(t, repo.CreateEvent(ctx, ev))

	cancelled, err := repo.CancelEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	again, err := repo.CancelEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestPostgresConcurrentConfirmations(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	require.NoError(t, repo.InitializeUsage(ctx, []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 5, WarningThreshold: 20},
	}))

	const racers = 10
	ids := make([]uuid.UUID, 0, racers)
	for i := 0; i < racers; i++ {
		ev := &DeductionEvent{AssignmentID: assignmentID, DeliverableType: "static_post", Quantity: 1, RequestedBy: "pm"}
		require.NoError(t, repo.CreateEvent(ctx, ev))
		ids = append(ids, ev.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, racers)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := repo.ConfirmEvent(ctx, id)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var confirmed int
	for err := range results {
		if err == nil {
			confirmed++
		} else {
			require.ErrorIs(t, err, ErrQuotaDepleted)
		}
	}
	assert.Equal(t, 5, confirmed)

	got, err := repo.GetUsage(ctx, assignmentID, "static_post")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Used, "used never exceeds total under concurrency")
}

func TestPostgresOverrideUsage(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	assignmentID := seedAssignment(t, pool)
	require.NoError(t, repo.InitializeUsage(ctx, []UsageRecord{
		{AssignmentID: assignmentID, DeliverableType: "static_post", Total: 10, WarningThreshold: 20},
	}))

	u, err := repo.OverrideUsage(ctx, assignmentID, "static_post", FieldUsed, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, u.Used)

	_, err = repo.OverrideUsage(ctx, assignmentID, "missing_type", FieldUsed, 1)
	assert.ErrorIs(t, err, ErrUsageRecordNotFound)
}
