package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Comment is a raw user comment on a dataset, produced by the upstream
// ingestion pipeline. RawText may still contain HTML markup.
type Comment struct {
	ID        surrealmodels.RecordID `json:"id"`
	DatasetID string                 `json:"dataset_id"`
	RawText   string                 `json:"raw_text"`
	Created   time.Time              `json:"created,omitempty"`
}
