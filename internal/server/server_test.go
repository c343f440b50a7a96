package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/veridata-go/internal/knowledge"
	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/raphaelgruber/veridata-go/internal/server"
	"github.com/raphaelgruber/veridata-go/internal/service"
)

// emptyStore has nothing to analyze, so jobs drain immediately.
type emptyStore struct{}

func (emptyStore) UnstructuredComments(ctx context.Context, limit int) ([]models.Comment, error) {
	return nil, nil
}

func (emptyStore) CreateResponse(ctx context.Context, commentID surrealmodels.RecordID, datasetID string, msg models.ResponseMessage) (*models.Response, error) {
	return nil, nil
}

func (emptyStore) UnscoredResponses(ctx context.Context, limit int) ([]models.Response, error) {
	return nil, nil
}

func (emptyStore) DatasetsByIDs(ctx context.Context, ids []string) ([]models.Dataset, error) {
	return nil, nil
}

func (emptyStore) UpdateResponse(ctx context.Context, id surrealmodels.RecordID, msg models.ResponseMessage, score float64) error {
	return nil
}

func (emptyStore) StampLastAnalysis(ctx context.Context, datasetID string) error { return nil }

type noopBuilder struct{}

func (noopBuilder) Build(ctx context.Context, datasetID string, resources []models.Resource) (*knowledge.Store, []knowledge.ResourceResult, error) {
	return nil, nil, &knowledge.BuildError{Reason: knowledge.FailureNoResources}
}

func testServer(t *testing.T) (http.Handler, *service.JobRegistry) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	jobs := service.NewJobRegistry(logger)
	analysis := service.NewAnalysisService(
		emptyStore{},
		service.NewStructurer(nil, logger),
		noopBuilder{},
		service.NewVerifier(nil, "test-model", logger),
		jobs,
		nil,
		20,
		logger,
	)

	srv := server.New(server.Deps{
		Jobs:     jobs,
		Analysis: analysis,
		Stats:    metrics.NewCollector(),
		Logger:   logger,
	})
	return srv.Handler(), jobs
}

func doRequest(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	handler, _ := testServer(t)

	w := doRequest(handler, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestStartAndPollAnalysis(t *testing.T) {
	handler, _ := testServer(t)

	w := doRequest(handler, http.MethodPost, "/api/analysis")
	require.Equal(t, http.StatusAccepted, w.Code)

	var started struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.JobID)

	// Nothing to analyze, so the job drains quickly
	var info models.JobInfo
	require.Eventually(t, func() bool {
		w := doRequest(handler, http.MethodGet, "/api/jobs/"+started.JobID)
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
			return false
		}
		return info.IsComplete
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.JobCompleted, info.Status)
	assert.Empty(t, info.Error)

	// Polling from the reported next index yields no further entries
	w = doRequest(handler, http.MethodGet, "/api/jobs/"+started.JobID+"?since=1000000")
	require.Equal(t, http.StatusOK, w.Code)
	var again models.JobInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Empty(t, again.Logs)
}

func TestJobInfoErrors(t *testing.T) {
	handler, _ := testServer(t)

	w := doRequest(handler, http.MethodGet, "/api/jobs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(handler, http.MethodGet, "/api/jobs/missing?since=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelJob(t *testing.T) {
	handler, jobs := testServer(t)

	w := doRequest(handler, http.MethodPost, "/api/jobs/missing/cancel")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled": false}`, w.Body.String())

	jobs.Start("running-job", "analysis")
	w = doRequest(handler, http.MethodPost, "/api/jobs/running-job/cancel")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled": true}`, w.Body.String())
	assert.True(t, jobs.CancelRequested("running-job"))
}

func TestListJobs(t *testing.T) {
	handler, jobs := testServer(t)
	jobs.Start("job1", "analysis")

	w := doRequest(handler, http.MethodGet, "/api/jobs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Jobs []models.JobInfo `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "job1", body.Jobs[0].ID)
}

func TestStats(t *testing.T) {
	handler, _ := testServer(t)

	w := doRequest(handler, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}
