package services_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/storage"
	"github.com/shashiranjanraj/faultline/pkg/workerpool"
)

type exportFixture struct {
	store  *store.Store
	pool   *workerpool.Pool
	svc    *services.ExportService
	events func() []monitor.Event
}

func newExports(t *testing.T, s *store.Store, workers int) exportFixture {
	t.Helper()

	var mu sync.Mutex
	var got []monitor.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev monitor.Event
		if json.NewDecoder(r.Body).Decode(&ev) == nil {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	mon, err := monitor.New(monitor.Config{APIKey: "k", Endpoint: srv.URL, ProjectID: "faultline-test"})
	require.NoError(t, err)

	disk, err := storage.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	pool := workerpool.New(workers)
	svc := services.NewExportService(s, pool, disk, mon)
	t.Cleanup(func() {
		pool.Shutdown()
		svc.Wait()
	})

	return exportFixture{
		store: s,
		pool:  pool,
		svc:   svc,
		events: func() []monitor.Event {
			require.NoError(t, mon.Flush(context.Background()))
			mu.Lock()
			defer mu.Unlock()
			return append([]monitor.Event(nil), got...)
		},
	}
}

func waitSettled(t *testing.T, svc *services.ExportService, id string) models.ExportJob {
	t.Helper()
	var job models.ExportJob
	require.Eventually(t, func() bool {
		j, err := svc.Get(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestExportCSVCompletes(t *testing.T) {
	f := newExports(t, newStore(), 1)
	ctx := context.Background()

	job, err := f.svc.Start(ctx, services.ExportInput{Type: "products", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportPending, job.Status)

	job = waitSettled(t, f.svc, job.ID)
	require.Equal(t, models.ExportCompleted, job.Status, job.Error)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 8, job.RecordCount)
	assert.Positive(t, job.SizeBytes)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, "/api/export?id="+job.ID+"&download=true", job.DownloadURL)

	rc, _, err := f.svc.Open(ctx, job.ID)
	require.NoError(t, err)
	defer rc.Close()
	rows, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"id", "sku", "name", "price", "inventory", "category", "createdAt"}, rows[0])
	assert.Equal(t, "", rows[6][5], "uncategorized product")
}

func TestExportJSONHidesPasswords(t *testing.T) {
	f := newExports(t, newStore(), 1)

	job, err := f.svc.Start(context.Background(), services.ExportInput{Type: "users"})
	require.NoError(t, err)
	assert.Equal(t, services.FormatJSON, job.Format)

	job = waitSettled(t, f.svc, job.ID)
	require.Equal(t, models.ExportCompleted, job.Status, job.Error)

	rc, _, err := f.svc.Open(context.Background(), job.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 5)
	assert.Equal(t, "Alice J.", users[0]["displayName"])
	assert.NotContains(t, string(body), "$2a$")
}

func TestExportFailureIsObservable(t *testing.T) {
	// Every FindMany is dropped, so the export cannot read its records.
	s := store.New(store.Options{Faults: fault.Always()})
	f := newExports(t, s, 1)

	job, err := f.svc.Start(context.Background(), services.ExportInput{Type: "orders"})
	require.NoError(t, err)

	job = waitSettled(t, f.svc, job.ID)
	assert.Equal(t, models.ExportFailed, job.Status)
	assert.Contains(t, job.Error, "store result dropped")

	_, _, err = f.svc.Open(context.Background(), job.ID)
	assert.ErrorIs(t, err, services.ErrExportNotReady)

	require.Eventually(t, func() bool { return len(f.events()) == 1 }, 2*time.Second, 10*time.Millisecond)
	ev := f.events()[0]
	assert.Equal(t, "faultline-test", ev.ProjectID)
	assert.Contains(t, ev.Exception.Message, "store result dropped")
}

// occupy keeps the pool's only worker and queued more slots busy until the test
// ends, so nothing else can run. The first blocker is running before the
// rest are queued, so exactly queued slots are taken.
func occupy(t *testing.T, pool *workerpool.Pool, queued int) {
	t.Helper()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	block := func(ctx context.Context, _ func(int)) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	}

	first, err := pool.Go(context.Background(), "blocker-0", block)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return first.Status() == workerpool.StatusRunning },
		2*time.Second, 5*time.Millisecond, "worker never picked up the first blocker")

	for i := range queued {
		_, err := pool.Go(context.Background(), fmt.Sprintf("blocker-%d", i+1), block)
		require.NoError(t, err)
	}
}

func TestExportCancel(t *testing.T) {
	f := newExports(t, newStore(), 1)
	ctx := context.Background()
	occupy(t, f.pool, 1)

	job, err := f.svc.Start(ctx, services.ExportInput{Type: "comments"})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled, "job was still queued")

	_, err = f.svc.Get(ctx, job.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.svc.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestExportWatchStreamsUntilSettled(t *testing.T) {
	f := newExports(t, newStore(), 1)

	job, err := f.svc.Start(context.Background(), services.ExportInput{Type: "orders", Format: "csv"})
	require.NoError(t, err)

	updates, settled, stop, ok := f.svc.Watch(job.ID)
	if !ok {
		// Already finished before we could watch.
		assert.Equal(t, models.ExportCompleted, waitSettled(t, f.svc, job.ID).Status)
		return
	}
	defer stop()

	var last services.ExportProgress
	for p := range updates {
		last = p
	}
	assert.Equal(t, models.ExportCompleted, last.Status)

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("export never settled")
	}
	got, err := f.svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportCompleted, got.Status)
}

func TestExportQueueFull(t *testing.T) {
	f := newExports(t, newStore(), 1)
	ctx := context.Background()
	occupy(t, f.pool, 2)

	_, err := f.svc.Start(ctx, services.ExportInput{Type: "users"})
	assert.ErrorIs(t, err, services.ErrQueueFull)

	jobs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected job is not kept")
}
