package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/veridata-go/internal/knowledge"
	"github.com/raphaelgruber/veridata-go/internal/llm"
	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// errCancelled aborts a run once the job's cancel flag is observed.
var errCancelled = errors.New("job cancelled")

// Store is the persistence collaborator for the analysis pipeline.
type Store interface {
	UnstructuredComments(ctx context.Context, limit int) ([]models.Comment, error)
	CreateResponse(ctx context.Context, commentID surrealmodels.RecordID, datasetID string, msg models.ResponseMessage) (*models.Response, error)
	UnscoredResponses(ctx context.Context, limit int) ([]models.Response, error)
	DatasetsByIDs(ctx context.Context, ids []string) ([]models.Dataset, error)
	UpdateResponse(ctx context.Context, id surrealmodels.RecordID, msg models.ResponseMessage, score float64) error
	StampLastAnalysis(ctx context.Context, datasetID string) error
}

// StoreBuilder builds per-dataset knowledge stores.
type StoreBuilder interface {
	Build(ctx context.Context, datasetID string, resources []models.Resource) (*knowledge.Store, []knowledge.ResourceResult, error)
}

// AnalysisService drives background analysis jobs: a structuring phase that
// turns raw comments into statements, then a verification phase that checks
// each statement against its dataset's resources. One job is one sequential
// worker; datasets and statements are processed one at a time to respect
// provider rate limits and to keep knowledge stores scoped to a single
// dataset.
type AnalysisService struct {
	store      Store
	structurer *Structurer
	builder    StoreBuilder
	verifier   *Verifier
	jobs       *JobRegistry
	stats      *metrics.Collector
	logger     *slog.Logger
	batchSize  int
}

// NewAnalysisService wires the analysis pipeline together. stats may be nil.
func NewAnalysisService(store Store, structurer *Structurer, builder StoreBuilder, verifier *Verifier, jobs *JobRegistry, stats *metrics.Collector, batchSize int, logger *slog.Logger) *AnalysisService {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &AnalysisService{
		store:      store,
		structurer: structurer,
		builder:    builder,
		verifier:   verifier,
		jobs:       jobs,
		stats:      stats,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// StartAnalysis registers a new job and runs it in the background. The caller
// polls the registry for progress.
func (s *AnalysisService) StartAnalysis() string {
	jobID := uuid.New().String()[:8]
	s.jobs.Start(jobID, "analysis")
	go s.run(jobID)
	return jobID
}

func (s *AnalysisService) run(jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis job panicked", "job_id", jobID, "panic", r)
			s.jobs.Complete(jobID, models.JobFailed, fmt.Errorf("internal panic: %v", r))
		}
	}()

	ctx := context.Background()
	err := s.runJob(ctx, jobID)
	switch {
	case errors.Is(err, errCancelled):
		s.jobs.Log(jobID, models.LogWarn, "analysis cancelled")
		s.jobs.Complete(jobID, models.JobCancelled, nil)
	case err != nil:
		s.jobs.Log(jobID, models.LogError, err.Error())
		s.jobs.Complete(jobID, models.JobFailed, err)
	default:
		s.jobs.Complete(jobID, models.JobCompleted, nil)
	}
}

func (s *AnalysisService) runJob(ctx context.Context, jobID string) error {
	if err := s.structureComments(ctx, jobID); err != nil {
		return err
	}
	return s.verifyResponses(ctx, jobID)
}

// structureComments drains comments without a response in bounded batches.
func (s *AnalysisService) structureComments(ctx context.Context, jobID string) error {
	s.jobs.Log(jobID, models.LogInfo, "structuring phase started")

	// Comments that yield no statements get no response row and would be
	// refetched every batch; skip them for the rest of this pass.
	skipped := make(map[string]bool)
	structured, failed := 0, 0

	for {
		if s.jobs.CancelRequested(jobID) {
			return errCancelled
		}

		// Skipped comments have no response row and stay in the unstructured
		// set; widen the page by their count so a fetch can never consist of
		// already-skipped comments while unseen ones wait behind them.
		comments, err := s.store.UnstructuredComments(ctx, s.batchSize+len(skipped))
		if err != nil {
			return fmt.Errorf("fetch comments: %w", err)
		}

		var pending []models.Comment
		for _, c := range comments {
			if !skipped[models.MustRecordIDString(c.ID)] {
				pending = append(pending, c)
			}
		}
		if len(pending) == 0 {
			break
		}

		for _, comment := range pending {
			if s.jobs.CancelRequested(jobID) {
				return errCancelled
			}

			commentID := models.MustRecordIDString(comment.ID)
			started := time.Now()
			statements, err := s.structurer.Structure(ctx, comment.RawText)
			s.stats.Record(metrics.OpStructure, time.Since(started), err != nil || len(statements) == 0)
			if err != nil {
				return fmt.Errorf("structure comment %s: %w", commentID, err)
			}
			if len(statements) == 0 {
				skipped[commentID] = true
				failed++
				s.jobs.Log(jobID, models.LogWarn, fmt.Sprintf("comment %s produced no statements", commentID))
				continue
			}

			if _, err := s.store.CreateResponse(ctx, comment.ID, comment.DatasetID, models.OkMessage(statements)); err != nil {
				return fmt.Errorf("persist response for comment %s: %w", commentID, err)
			}
			structured++
			s.jobs.Log(jobID, models.LogInfo, fmt.Sprintf("structured comment %s into %d statements", commentID, len(statements)))
		}
	}

	s.jobs.Log(jobID, models.LogInfo, fmt.Sprintf("structuring phase done: %d structured, %d without statements", structured, failed))
	return nil
}

// verifyResponses drains unscored responses in bounded batches, one dataset
// group at a time.
func (s *AnalysisService) verifyResponses(ctx context.Context, jobID string) error {
	s.jobs.Log(jobID, models.LogInfo, "verification phase started")

	for {
		if s.jobs.CancelRequested(jobID) {
			return errCancelled
		}

		responses, err := s.store.UnscoredResponses(ctx, s.batchSize)
		if err != nil {
			return fmt.Errorf("fetch unscored responses: %w", err)
		}
		if len(responses) == 0 {
			break
		}

		groups, err := s.groupByDataset(ctx, responses)
		if err != nil {
			return err
		}

		for _, group := range groups {
			if s.jobs.CancelRequested(jobID) {
				return errCancelled
			}
			if err := s.processDataset(ctx, jobID, group); err != nil {
				return err
			}
		}
	}

	s.jobs.Log(jobID, models.LogInfo, "verification phase done")
	return nil
}

// groupByDataset splits a batch of responses into per-dataset work units,
// enriched with the dataset metadata and resources.
func (s *AnalysisService) groupByDataset(ctx context.Context, responses []models.Response) ([]*models.DatasetGroup, error) {
	byID := make(map[string]*models.DatasetGroup)
	var order []string
	for i := range responses {
		r := &responses[i]
		group, ok := byID[r.DatasetID]
		if !ok {
			group = &models.DatasetGroup{DatasetID: r.DatasetID}
			byID[r.DatasetID] = group
			order = append(order, r.DatasetID)
		}
		group.Responses = append(group.Responses, r)
	}

	datasets, err := s.store.DatasetsByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("fetch datasets: %w", err)
	}
	for i := range datasets {
		if group, ok := byID[datasets[i].DatasetID]; ok {
			group.Dataset = &datasets[i]
		}
	}

	groups := make([]*models.DatasetGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, byID[id])
	}
	return groups, nil
}

// processDataset builds the dataset's knowledge store, verifies every pending
// response against it and tears the store down again. Build failures mark the
// whole group unscorable; only fatal provider errors and cancellation abort
// the run.
func (s *AnalysisService) processDataset(ctx context.Context, jobID string, group *models.DatasetGroup) error {
	if group.Dataset == nil {
		s.jobs.Log(jobID, models.LogWarn, fmt.Sprintf("dataset %s has no metadata", group.DatasetID))
		return s.markUnscorable(ctx, group, "dataset metadata not found")
	}

	s.jobs.Log(jobID, models.LogInfo, fmt.Sprintf("building knowledge store for dataset %s (%d responses)", group.DatasetID, len(group.Responses)))

	store, results, err := s.builder.Build(ctx, group.DatasetID, group.Dataset.Resources)
	for _, r := range results {
		if r.Outcome != knowledge.OutcomeSuccess {
			s.jobs.Log(jobID, models.LogDebug, fmt.Sprintf("resource %s: %s", r.ResourceID, r.Outcome))
		}
	}
	if err != nil {
		var buildErr *knowledge.BuildError
		if errors.As(err, &buildErr) {
			s.jobs.Log(jobID, models.LogWarn, fmt.Sprintf("dataset %s: %v", group.DatasetID, buildErr))
			return s.markUnscorable(ctx, group, buildErr.Error())
		}

		// Store creation and polling hit the same provider account as the
		// verifier, so credential and billing failures must abort the run
		// instead of burning every group with the sentinel score.
		err = llm.Classify(err)
		switch {
		case llm.IsFatal(err), errors.Is(err, context.Canceled):
			return err
		default:
			s.jobs.Log(jobID, models.LogError, fmt.Sprintf("dataset %s: knowledge store build failed: %v", group.DatasetID, err))
			return s.markUnscorable(ctx, group, "knowledge store build failed")
		}
	}
	defer store.Release(context.WithoutCancel(ctx))

	metadata := renderMetadata(group.Dataset)
	cancelled := func() bool { return s.jobs.CancelRequested(jobID) }

	for _, resp := range group.Responses {
		if cancelled() {
			return errCancelled
		}

		started := time.Now()
		statements, score, err := s.verifier.Verify(ctx, store.ID, resp.Message.Statements, metadata, cancelled)
		s.stats.Record(metrics.OpVerify, time.Since(started), err != nil)
		if err != nil {
			return err
		}

		msg := resp.Message
		msg.Statements = statements
		for i := range msg.Statements {
			msg.Statements[i].Flag = false
		}
		if err := s.store.UpdateResponse(ctx, resp.ID, msg, score); err != nil {
			return fmt.Errorf("persist score for response %s: %w", models.MustRecordIDString(resp.ID), err)
		}
		s.jobs.Log(jobID, models.LogInfo, fmt.Sprintf("scored response %s: %.1f", models.MustRecordIDString(resp.ID), score))
	}

	if err := s.store.StampLastAnalysis(ctx, group.DatasetID); err != nil {
		s.jobs.Log(jobID, models.LogWarn, fmt.Sprintf("stamp last analysis for dataset %s: %v", group.DatasetID, err))
	}
	return nil
}

// markUnscorable writes the sentinel score and merges the error message into
// every pending response of the group, preserving existing statements.
func (s *AnalysisService) markUnscorable(ctx context.Context, group *models.DatasetGroup, message string) error {
	for _, resp := range group.Responses {
		if err := s.store.UpdateResponse(ctx, resp.ID, resp.Message.WithError(message), models.SentinelScore); err != nil {
			return fmt.Errorf("mark response unscorable: %w", err)
		}
	}
	return nil
}
