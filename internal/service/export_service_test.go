package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	"github.com/noah-isme/school-community-api/pkg/export"
	"github.com/noah-isme/school-community-api/pkg/jobs"
	"github.com/noah-isme/school-community-api/pkg/storage"
)

type fakeExportJobStore struct {
	rows map[string]*models.ExportJob
}

func newFakeExportJobStore() *fakeExportJobStore {
	return &fakeExportJobStore{rows: make(map[string]*models.ExportJob)}
}

func (f *fakeExportJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	clone := *job
	f.rows[job.ID] = &clone
	return nil
}

func (f *fakeExportJobStore) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (f *fakeExportJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultPath != nil {
		job.ResultPath = params.ResultPath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeExportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	out := make([]models.ExportJob, 0)
	for _, job := range f.rows {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

type fakeDispatcher struct {
	enqueued []jobs.Job
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeAuditProvider struct{}

func (fakeAuditProvider) AuditDataset(ctx context.Context) (export.Dataset, error) {
	return export.Dataset{
		Headers: []string{"Date", "Previous Admin", "New Admin", "Notes"},
		Rows: []map[string]string{{
			"Date":           "2026-06-30 09:00",
			"Previous Admin": "admin-1",
			"New Admin":      "student-1",
			"Notes":          "graduation",
		}},
	}, nil
}

func newExportFixture(t *testing.T) (*ExportService, *fakeExportJobStore, *fakeDispatcher) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	repo := newFakeExportJobStore()
	queue := &fakeDispatcher{}
	svc := NewExportService(repo, fakeAuditProvider{}, queue, store, signer,
		ExportServiceConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	return svc, repo, queue
}

func TestExportServiceCreateJob(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "admin-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	assert.Contains(t, repo.rows, job.ID)
}

func TestExportServiceCreateJobBadFormat(t *testing.T) {
	svc, _, queue := newExportFixture(t)

	_, err := svc.CreateJob(context.Background(), "admin-1", models.ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Empty(t, queue.enqueued)
}

func TestExportServiceProcessAndDownload(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "admin-1", models.ExportFormatCSV)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), queue.enqueued[0]))

	stored := repo.rows[job.ID]
	assert.Equal(t, models.ExportStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "/api/v1/export/"))
	require.NotNil(t, stored.FinishedAt)

	token := strings.TrimPrefix(*stored.ResultURL, "/api/v1/export/")
	download, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	payload, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "graduation")
	assert.Equal(t, models.ExportFormatCSV, download.Format)
}

func TestExportServiceProcessIdempotent(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "admin-1", models.ExportFormatCSV)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), queue.enqueued[0]))
	first := *repo.rows[job.ID].ResultPath

	// A redelivered job must not overwrite the finished result.
	require.NoError(t, svc.Process(context.Background(), queue.enqueued[0]))
	assert.Equal(t, first, *repo.rows[job.ID].ResultPath)
}

func TestExportServiceDownloadBadToken(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.Download(context.Background(), "forged.token.value.sig")
	assert.Error(t, err)
}

func TestExportServiceGetJobOwnership(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "admin-1", models.ExportFormatPDF)
	require.NoError(t, err)

	_, err = svc.GetJob(context.Background(), job.ID, "admin-2")
	require.Error(t, err)

	got, err := svc.GetJob(context.Background(), job.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestExportServiceRecoverQueued(t *testing.T) {
	svc, repo, queue := newExportFixture(t)
	repo.rows["stale-1"] = &models.ExportJob{ID: "stale-1", Format: models.ExportFormatCSV, Status: models.ExportStatusQueued, RequestedBy: "admin-1"}

	require.NoError(t, svc.RecoverQueued(context.Background(), 10))
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "stale-1", queue.enqueued[0].ID)
}
