// Package db query functions for the analysis pipeline.
package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// UnstructuredComments returns a page of comments that have no response yet.
// These are the comments the structuring phase still has to process.
func (c *Client) UnstructuredComments(ctx context.Context, limit int) ([]models.Comment, error) {
	results, err := surrealdb.Query[[]models.Comment](ctx, c.db, `
		SELECT * FROM comment
		WHERE id NOTINSIDE (SELECT VALUE comment_id FROM response)
		ORDER BY created
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("unstructured comments: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Comment{}, nil
}

// CreateResponse persists a new response for a comment with a nil score
// (unprocessed). The unique index on comment_id prevents duplicates.
func (c *Client) CreateResponse(ctx context.Context, commentID surrealmodels.RecordID, datasetID string, msg models.ResponseMessage) (*models.Response, error) {
	results, err := surrealdb.Query[[]models.Response](ctx, c.db, `
		CREATE response SET
			comment_id = $comment,
			dataset_id = $dataset,
			message = $message
	`, map[string]any{
		"comment": commentID,
		"dataset": datasetID,
		"message": msg,
	})
	if err != nil {
		return nil, fmt.Errorf("create response: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create response returned no record")
	}
	return &(*results)[0].Result[0], nil
}

// UnscoredResponses returns a page of responses with a nil score, ordered by
// dataset so callers can group them into per-dataset work units. The
// score-is-none predicate makes reprocessing within a pass impossible and
// resuming an interrupted pass safe.
func (c *Client) UnscoredResponses(ctx context.Context, limit int) ([]models.Response, error) {
	results, err := surrealdb.Query[[]models.Response](ctx, c.db, `
		SELECT * FROM response
		WHERE score IS NONE
		ORDER BY dataset_id, created
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("unscored responses: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Response{}, nil
}

// DatasetsByIDs fetches dataset metadata (including resources) for a set of
// catalog dataset ids.
func (c *Client) DatasetsByIDs(ctx context.Context, ids []string) ([]models.Dataset, error) {
	if len(ids) == 0 {
		return []models.Dataset{}, nil
	}

	results, err := surrealdb.Query[[]models.Dataset](ctx, c.db, `
		SELECT * FROM dataset WHERE dataset_id INSIDE $ids
	`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("datasets by ids: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Dataset{}, nil
}

// UpdateResponse writes a response's message and score. Each call is an
// independent atomic update; no cross-row lock is held during a pass.
func (c *Client) UpdateResponse(ctx context.Context, id surrealmodels.RecordID, msg models.ResponseMessage, score float64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET
			message = $message,
			score = $score,
			updated = time::now()
	`, map[string]any{
		"id":      id,
		"message": msg,
		"score":   score,
	})
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	return nil
}

// StampLastAnalysis records when a dataset was last verified.
func (c *Client) StampLastAnalysis(ctx context.Context, datasetID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE dataset SET last_analysis = time::now() WHERE dataset_id = $dataset
	`, map[string]any{"dataset": datasetID})
	if err != nil {
		return fmt.Errorf("stamp last analysis: %w", err)
	}
	return nil
}

// GetResponse retrieves a response by record id. Returns nil if not found.
func (c *Client) GetResponse(ctx context.Context, id string) (*models.Response, error) {
	results, err := surrealdb.Query[[]models.Response](ctx, c.db, `
		SELECT * FROM type::record("response", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CreateComment inserts a raw comment. Used by the ingestion edge and tests.
func (c *Client) CreateComment(ctx context.Context, datasetID, rawText string) (*models.Comment, error) {
	results, err := surrealdb.Query[[]models.Comment](ctx, c.db, `
		CREATE comment SET dataset_id = $dataset, raw_text = $text
	`, map[string]any{
		"dataset": datasetID,
		"text":    rawText,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create comment returned no record")
	}
	return &(*results)[0].Result[0], nil
}

// CreateDataset inserts dataset catalog metadata. Used by the ingestion edge
// and tests.
func (c *Client) CreateDataset(ctx context.Context, d models.Dataset) (*models.Dataset, error) {
	results, err := surrealdb.Query[[]models.Dataset](ctx, c.db, `
		CREATE dataset CONTENT $data
	`, map[string]any{"data": map[string]any{
		"dataset_id":      d.DatasetID,
		"title":           d.Title,
		"theme":           d.Theme,
		"description":     d.Description,
		"url":             d.URL,
		"license":         d.License,
		"refresh_cadence": d.RefreshCadence,
		"tags":            d.Tags,
		"resources":       d.Resources,
	}})
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create dataset returned no record")
	}
	return &(*results)[0].Result[0], nil
}
