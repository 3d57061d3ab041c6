package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/collection"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/storage"
	"github.com/shashiranjanraj/faultline/pkg/workerpool"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var (
	ErrExportNotReady = fmt.Errorf("%w: export not ready", ErrConflict)
	ErrResultDropped  = errors.New("store result dropped")
)

// ExportTypes lists what can be exported.
var ExportTypes = []string{"users", "orders", "products", "comments"}

type ExportInput struct {
	Type   string `json:"type" validate:"required,in=users,orders,products,comments"`
	Format string `json:"format" validate:"nullable,in=json,csv"`
}

// ExportProgress is one status update streamed to watchers.
type ExportProgress struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
	Error    string              `json:"error,omitempty"`
}

type exportResult struct {
	records int
	size    int64
}

type exportEntry struct {
	task    *workerpool.Task
	settled chan struct{}
}

// ExportService runs exports on the worker pool and mirrors each task's
// state into its ExportJob record.
type ExportService struct {
	store   *store.Store
	pool    *workerpool.Pool
	disk    storage.Disk
	monitor *monitor.Client

	mu      sync.Mutex
	entries map[string]*exportEntry
	wg      sync.WaitGroup
}

// NewExportService reports failed jobs to mon; a nil mon reports nothing.
func NewExportService(s *store.Store, pool *workerpool.Pool, disk storage.Disk, mon *monitor.Client) *ExportService {
	return &ExportService{
		store:   s,
		pool:    pool,
		disk:    disk,
		monitor: mon,
		entries: make(map[string]*exportEntry),
	}
}

// ExportStatusOf maps a task status to the job status it is shown as.
func ExportStatusOf(s workerpool.Status) models.ExportStatus {
	switch s {
	case workerpool.StatusRunning:
		return models.ExportRunning
	case workerpool.StatusSucceeded:
		return models.ExportCompleted
	case workerpool.StatusFailed:
		return models.ExportFailed
	case workerpool.StatusCancelled:
		return models.ExportCancelled
	}
	return models.ExportPending
}

// Start creates the job and schedules it. The job outlives ctx's
// cancellation; only Cancel or shutdown stop it.
func (s *ExportService) Start(ctx context.Context, in ExportInput) (models.ExportJob, error) {
	format := in.Format
	if format == "" {
		format = FormatJSON
	}

	job, err := s.store.Exports.Create(ctx, models.ExportJob{
		Type:      in.Type,
		Format:    format,
		Status:    models.ExportPending,
		CreatedAt: s.store.Now(),
	})
	if err != nil {
		return models.ExportJob{}, err
	}

	entry := &exportEntry{settled: make(chan struct{})}
	s.mu.Lock()
	task, err := s.pool.Go(context.WithoutCancel(ctx), job.ID, func(ctx context.Context, report func(int)) (any, error) {
		return s.run(ctx, job, report)
	})
	if err == nil {
		entry.task = task
		s.entries[job.ID] = entry
	}
	s.mu.Unlock()

	if err != nil {
		if _, derr := s.store.Exports.Delete(context.WithoutCancel(ctx), job.ID); derr != nil {
			logger.WithCtx(ctx).Warn("rejected export not removed", "export_id", job.ID, "error", derr)
		}
		if errors.Is(err, workerpool.ErrPoolFull) {
			return models.ExportJob{}, fmt.Errorf("%w: %v", ErrQueueFull, err)
		}
		return models.ExportJob{}, err
	}

	s.wg.Add(1)
	go s.track(context.WithoutCancel(ctx), job, entry)
	return job, nil
}

func (s *ExportService) run(ctx context.Context, job models.ExportJob, report func(int)) (exportResult, error) {
	tbl, err := s.collect(ctx, job.Type)
	if err != nil {
		return exportResult{}, err
	}
	report(30)

	var buf bytes.Buffer
	contentType := "application/json"
	switch job.Format {
	case FormatCSV:
		contentType = "text/csv"
		err = tbl.writeCSV(&buf, func(done int) { report(30 + done*60/max(len(tbl.rows), 1)) })
	default:
		err = tbl.writeJSON(&buf)
	}
	if err != nil {
		return exportResult{}, fmt.Errorf("encode %s export: %w", job.Format, err)
	}
	report(90)

	if err := ctx.Err(); err != nil {
		return exportResult{}, err
	}
	path := exportPath(job)
	size, err := s.disk.Put(ctx, path, &buf, contentType)
	if err != nil {
		return exportResult{}, fmt.Errorf("write export: %w", err)
	}
	report(100)

	return exportResult{records: len(tbl.records), size: size}, nil
}

// track mirrors the task into the job record until it settles.
func (s *ExportService) track(ctx context.Context, job models.ExportJob, entry *exportEntry) {
	defer s.wg.Done()
	defer close(entry.settled)

	start := time.Now()
	log := logger.WithCtx(ctx).With("export_id", job.ID, "type", job.Type)

	updates, stop := entry.task.Subscribe()
	started := false
	for snap := range updates {
		if snap.Status != workerpool.StatusRunning {
			continue
		}
		patch := map[string]any{"status": models.ExportRunning, "progress": snap.Progress}
		if !started {
			patch["startedAt"] = s.store.Now()
			started = true
		}
		s.patch(ctx, log, job.ID, patch)
	}
	stop()

	result, err := entry.task.Wait(ctx)
	status := ExportStatusOf(entry.task.Status())
	now := s.store.Now()
	patch := map[string]any{"status": status, "completedAt": now}
	if !started {
		patch["startedAt"] = now
	}

	switch status {
	case models.ExportCompleted:
		res := result.(exportResult)
		patch["progress"] = 100
		patch["recordCount"] = res.records
		patch["sizeBytes"] = res.size
		patch["downloadUrl"] = "/api/export?id=" + job.ID + "&download=true"
		log.Info("export completed", "records", res.records, "bytes", res.size)
	case models.ExportFailed:
		patch["error"] = err.Error()
		eventID := s.monitor.Capture(ctx, fmt.Errorf("export %s (%s): %w", job.ID, job.Type, err), nil)
		log.Error("export failed", "error", err, "event_id", eventID)
	case models.ExportCancelled:
		patch["error"] = "export cancelled"
		if derr := s.disk.Delete(ctx, exportPath(job)); derr != nil {
			log.Warn("cancelled export file not removed", "error", derr)
		}
		log.Info("export cancelled")
	}
	s.patch(ctx, log, job.ID, patch)
	metrics.ObserveExport(job.Type, string(status), start)

	s.mu.Lock()
	delete(s.entries, job.ID)
	s.mu.Unlock()
}

func (s *ExportService) patch(ctx context.Context, log *slog.Logger, id string, patch map[string]any) {
	_, err := s.store.Exports.Update(ctx, id, patch)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("export record not updated", "error", err)
	}
}

// Get returns a job, or ErrNotFound.
func (s *ExportService) Get(ctx context.Context, id string) (models.ExportJob, error) {
	job, err := s.store.Exports.FindUnique(ctx, id)
	if err != nil {
		return models.ExportJob{}, err
	}
	if job == nil {
		return models.ExportJob{}, fmt.Errorf("%w: export %s", ErrNotFound, id)
	}
	return *job, nil
}

// List returns every job, newest first. Ids are fixed-width timestamps, so
// they order like creation time and break its ties.
func (s *ExportService) List(ctx context.Context) ([]models.ExportJob, error) {
	res, err := s.store.Exports.FindMany(ctx, store.Query[models.ExportJob]{
		Sort: store.Newest(func(j models.ExportJob) string { return j.ID }),
	})
	if err != nil {
		return nil, err
	}
	return repositories.Items(ctx, s.store.Exports.Name(), res), nil
}

// Open returns the file of a completed job. The caller closes it.
func (s *ExportService) Open(ctx context.Context, id string) (io.ReadCloser, models.ExportJob, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, models.ExportJob{}, err
	}
	if job.Status != models.ExportCompleted {
		return nil, job, fmt.Errorf("%w: export %s is %s", ErrExportNotReady, id, job.Status)
	}
	rc, err := s.disk.Get(ctx, exportPath(job))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, job, fmt.Errorf("%w: export file for %s", ErrNotFound, id)
	}
	return rc, job, err
}

// Cancel stops a running job and removes it with its file. cancelled
// reports whether a task was still running.
func (s *ExportService) Cancel(ctx context.Context, id string) (cancelled bool, err error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	entry := s.entries[id]
	s.mu.Unlock()
	if entry != nil && !entry.task.Status().Terminal() {
		entry.task.Cancel()
		cancelled = true
	}

	if _, err := s.store.Exports.Delete(ctx, id); err != nil {
		return cancelled, err
	}
	if err := s.disk.Delete(ctx, exportPath(job)); err != nil {
		logger.WithCtx(ctx).Warn("export file not removed", "export_id", id, "error", err)
	}
	return cancelled, nil
}

// Watch streams progress for a job still in flight. ok is false when the
// job has already settled; read it with Get instead. settled is closed once
// the job record holds the final state.
func (s *ExportService) Watch(id string) (updates <-chan ExportProgress, settled <-chan struct{}, stop func(), ok bool) {
	s.mu.Lock()
	entry := s.entries[id]
	s.mu.Unlock()
	if entry == nil {
		return nil, nil, nil, false
	}

	snaps, unsub := entry.task.Subscribe()
	out := make(chan ExportProgress)
	quit := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(out)
		for snap := range snaps {
			p := ExportProgress{ID: snap.ID, Status: ExportStatusOf(snap.Status), Progress: snap.Progress}
			if snap.Err != nil {
				p.Error = snap.Err.Error()
			}
			select {
			case out <- p:
			case <-quit:
				return
			}
		}
	}()

	return out, entry.settled, func() {
		once.Do(func() {
			close(quit)
			unsub()
		})
	}, true
}

// Wait blocks until every tracked job has settled. Call it after the pool
// is shut down.
func (s *ExportService) Wait() { s.wg.Wait() }

// table is an export rendered two ways.
type table struct {
	header  []string
	rows    [][]string
	records []any
}

func (s *ExportService) collect(ctx context.Context, kind string) (table, error) {
	switch kind {
	case "users":
		items, err := all(ctx, s.store.Users)
		if err != nil {
			return table{}, err
		}
		return table{
			header: []string{"id", "email", "name", "role", "displayName", "createdAt"},
			rows: collection.Map(items, func(u models.User) []string {
				return []string{strconv.Itoa(u.ID), u.Email, u.Name, string(u.Role), u.DisplayName(), stamp(u.CreatedAt)}
			}),
			records: collection.Map(items, func(u models.User) any { return u.View() }),
		}, nil
	case "orders":
		items, err := all(ctx, s.store.Orders)
		if err != nil {
			return table{}, err
		}
		return table{
			header: []string{"id", "customerName", "customerEmail", "status", "total", "currency", "items", "createdAt"},
			rows: collection.Map(items, func(o models.Order) []string {
				return []string{o.ID, o.Customer.Name, o.Customer.Email, string(o.Status),
					strconv.FormatFloat(o.Total, 'f', 2, 64), o.Currency, strconv.Itoa(len(o.Items)), stamp(o.CreatedAt)}
			}),
			records: collection.Map(items, func(o models.Order) any { return o }),
		}, nil
	case "products":
		items, err := all(ctx, s.store.Products)
		if err != nil {
			return table{}, err
		}
		return table{
			header: []string{"id", "sku", "name", "price", "inventory", "category", "createdAt"},
			rows: collection.Map(items, func(p models.Product) []string {
				return []string{strconv.Itoa(p.ID), p.SKU, p.Name, strconv.FormatFloat(p.Price, 'f', 2, 64),
					strconv.Itoa(p.Inventory), p.CategoryName(), stamp(p.CreatedAt)}
			}),
			records: collection.Map(items, func(p models.Product) any { return p }),
		}, nil
	case "comments":
		items, err := all(ctx, s.store.Comments)
		if err != nil {
			return table{}, err
		}
		return table{
			header: []string{"id", "postId", "userId", "parentId", "content", "createdAt"},
			rows: collection.Map(items, func(c models.Comment) []string {
				parent := ""
				if c.ParentID != nil {
					parent = *c.ParentID
				}
				return []string{c.ID, c.PostID, c.UserID, parent, c.Content, stamp(c.CreatedAt)}
			}),
			records: collection.Map(items, func(c models.Comment) any { return c }),
		}, nil
	}
	return table{}, fmt.Errorf("%w: export type %q", ErrInvalidInput, kind)
}

// all fetches a whole collection. Unlike list endpoints, an export must not
// silently come out empty, so a dropped result is an error.
func all[T any](ctx context.Context, c *store.Collection[T]) ([]T, error) {
	res, err := c.FindMany(ctx, store.Query[T]{})
	if err != nil {
		return nil, err
	}
	if res.Dropped() {
		return nil, fmt.Errorf("%w: %s", ErrResultDropped, c.Name())
	}
	return res.Items(), nil
}

func (t table) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.records)
}

func (t table) writeCSV(w io.Writer, progress func(done int)) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for i, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
		progress(i + 1)
	}
	cw.Flush()
	return cw.Error()
}

func exportPath(job models.ExportJob) string {
	return fmt.Sprintf("exports/%s.%s", job.ID, job.Format)
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
