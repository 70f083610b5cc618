package ledger_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/pkg/ledger"
)

func testStore(t *testing.T) *ledger.Store {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping ledger integration test")
	}

	store, err := ledger.New(connString)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestLedger_BeginThenFinish(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID, err := store.Begin(ctx, "daily-news", `{"sendToAll":true}`)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	exec, err := store.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, exec.Status)
	assert.Equal(t, "daily-news", exec.WorkflowType)

	require.NoError(t, store.Finish(ctx, runID, models.StatusCompleted, "sent 3 emails"))

	exec, err = store.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, exec.Status)
	assert.Equal(t, "sent 3 emails", exec.Result)
	assert.True(t, exec.UpdatedAt.After(exec.CreatedAt) || exec.UpdatedAt.Equal(exec.CreatedAt))
}

func TestLedger_FinishTargetsOnlyItsOwnRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Two overlapping runs: finishing one must not touch the other.
	first, err := store.Begin(ctx, "daily-news", "")
	require.NoError(t, err)
	second, err := store.Begin(ctx, "daily-news", "")
	require.NoError(t, err)

	require.NoError(t, store.Finish(ctx, first, models.StatusFailed, "no articles"))

	exec, err := store.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, exec.Status)
}

func TestLedger_FinishUnknownRunFails(t *testing.T) {
	store := testStore(t)

	err := store.Finish(context.Background(), "00000000-0000-0000-0000-000000000000", models.StatusCompleted, "")
	assert.Error(t, err)
}

func TestLedger_RecentOrdersNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	marker := fmt.Sprintf("recent-%d", time.Now().UnixNano())
	_, err := store.Begin(ctx, marker, "")
	require.NoError(t, err)
	second, err := store.Begin(ctx, marker, "")
	require.NoError(t, err)

	execs, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, execs)
	assert.Equal(t, second, execs[0].ID)
}
