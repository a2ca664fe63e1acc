package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/extraction-engine/internal/meter"
)

// openTestDB connects to the database named by TEST_DATABASE_URL, or skips
// the test when unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, EnsureSchema(context.Background(), db))

	t.Cleanup(func() { db.Close() })
	return db
}

func testTask(apiKey string, pages int) (*Task, *File) {
	taskID := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Microsecond)
	task := &Task{
		TaskID:     taskID,
		FileCount:  1,
		TotalSize:  1024,
		TotalPages: pages,
		CreatedAt:  now,
		APIKey:     apiKey,
		TaskURL:    "http://localhost:8000/api/v1/task/" + taskID,
		Status:     StatusStarting,
		Model:      ModelHighQuality,
	}
	file := &File{
		FileID:         uuid.New().String(),
		TaskID:         taskID,
		FileName:       "doc.pdf",
		FileSize:       1024,
		PageCount:      pages,
		CreatedAt:      now,
		Status:         StatusStarting,
		InputLocation:  fmt.Sprintf("s3://test/%s/%s/tok/doc.pdf", apiKey, taskID),
		OutputLocation: fmt.Sprintf("s3://test/%s/%s/tok/doc.json", apiKey, taskID),
		Model:          ModelHighQuality,
	}
	return task, file
}

func TestCreateWithUsageAccumulates(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	apiKey := "itest-" + uuid.New().String()

	for _, pages := range []int{3, 5} {
		task, file := testTask(apiKey, pages)
		require.NoError(t, repos.Tasks.CreateWithUsage(ctx, task, file))
	}

	usage, err := repos.Usage.TotalUsage(ctx, apiKey, UsageTypePages)
	require.NoError(t, err)
	assert.Equal(t, int64(8), usage)
}

func TestCreateWithUsageEnforcesLimit(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	apiKey := "itest-" + uuid.New().String()

	require.NoError(t, repos.Usage.SetLimit(ctx, apiKey, UsageTypePages, 10))

	task, file := testTask(apiKey, 8)
	require.NoError(t, repos.Tasks.CreateWithUsage(ctx, task, file))

	// 8 + 3 > 10: rejected and fully rolled back.
	task, file = testTask(apiKey, 3)
	err := repos.Tasks.CreateWithUsage(ctx, task, file)
	var quotaErr *meter.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)

	_, err = repos.Tasks.GetByID(ctx, apiKey, task.TaskID)
	assert.ErrorIs(t, err, ErrNotFound)

	usage, err := repos.Usage.TotalUsage(ctx, apiKey, UsageTypePages)
	require.NoError(t, err)
	assert.Equal(t, int64(8), usage)

	// 8 + 2 == 10: the boundary is inclusive.
	task, file = testTask(apiKey, 2)
	require.NoError(t, repos.Tasks.CreateWithUsage(ctx, task, file))
}

func TestCreateWithUsageConcurrentAdmissions(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	apiKey := "itest-" + uuid.New().String()

	require.NoError(t, repos.Usage.SetLimit(ctx, apiKey, UsageTypePages, 10))

	// Ten racing 3-page ingestions on a 10-page limit: the row lock must
	// serialize them so exactly three commit.
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, file := testTask(apiKey, 3)
			errs[i] = repos.Tasks.CreateWithUsage(ctx, task, file)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		var quotaErr *meter.QuotaExceededError
		require.ErrorAs(t, err, &quotaErr)
	}
	assert.Equal(t, 3, admitted)

	usage, err := repos.Usage.TotalUsage(ctx, apiKey, UsageTypePages)
	require.NoError(t, err)
	assert.Equal(t, int64(9), usage)
}

func TestLimitAbsenceMeansUnlimited(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	limit, err := repos.Usage.Limit(ctx, "itest-"+uuid.New().String(), UsageTypePages)
	require.NoError(t, err)
	assert.Equal(t, meter.Unlimited, limit)
}

func TestGetByIDScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	apiKey := "itest-" + uuid.New().String()

	task, file := testTask(apiKey, 1)
	require.NoError(t, repos.Tasks.CreateWithUsage(ctx, task, file))

	got, err := repos.Tasks.GetByID(ctx, apiKey, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, got.TaskID)
	assert.Equal(t, StatusStarting, got.Status)

	// Another tenant's key cannot see the task.
	_, err = repos.Tasks.GetByID(ctx, "other-key", task.TaskID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByAPIKeyNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	apiKey := "itest-" + uuid.New().String()

	var ids []string
	for i := 0; i < 3; i++ {
		task, file := testTask(apiKey, 1)
		task.CreatedAt = task.CreatedAt.Add(time.Duration(i) * time.Second)
		file.CreatedAt = task.CreatedAt
		require.NoError(t, repos.Tasks.CreateWithUsage(ctx, task, file))
		ids = append(ids, task.TaskID)
	}

	tasks, err := repos.Tasks.ListByAPIKey(ctx, apiKey, 1, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, ids[2], tasks[0].TaskID)
	assert.Equal(t, ids[1], tasks[1].TaskID)

	rest, err := repos.Tasks.ListByAPIKey(ctx, apiKey, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].TaskID)
}
