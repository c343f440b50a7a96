package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Resource is one downloadable file linked to a dataset.
type Resource struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// Dataset holds the catalog metadata for one dataset.
type Dataset struct {
	ID             surrealmodels.RecordID `json:"id"`
	DatasetID      string                 `json:"dataset_id"`
	Title          string                 `json:"title"`
	Theme          string                 `json:"theme,omitempty"`
	Description    string                 `json:"description,omitempty"`
	URL            string                 `json:"url,omitempty"`
	License        string                 `json:"license,omitempty"`
	RefreshCadence string                 `json:"refresh_cadence,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	Resources      []Resource             `json:"resources,omitempty"`
	LastAnalysis   *time.Time             `json:"last_analysis,omitempty"`
}

// DatasetGroup is the transient unit of work for one verification pass:
// a dataset's metadata and resources together with the pending (unscored)
// responses that reference it. Built per pass, never persisted.
type DatasetGroup struct {
	DatasetID string
	Dataset   *Dataset
	Responses []*Response
}
