// Package knowledge builds ephemeral per-dataset knowledge stores from a
// dataset's resource files. A store lives for exactly one verification pass:
// created, populated, polled to readiness and deleted within the pass, on
// every exit path including failure.
package knowledge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/raphaelgruber/veridata-go/internal/openai"
)

const (
	// MaxFileSize caps both the declared and the actual byte size of a
	// resource file.
	MaxFileSize int64 = 5 << 20

	defaultPollInterval = 15 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Index is the knowledge-index collaborator the builder drives.
type Index interface {
	CreateFile(ctx context.Context, data []byte, filename string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, name string) (string, error)
	AttachFile(ctx context.Context, storeID, fileID string) error
	ListFiles(ctx context.Context, storeID string) ([]openai.StoreFile, error)
	DeleteVectorStore(ctx context.Context, storeID string) error
}

// Outcome records what happened to a single resource during a build.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeTooLarge          Outcome = "too_large"
	OutcomeInvalidURL        Outcome = "invalid_url"
	OutcomeNoFormat          Outcome = "no_format"
	OutcomeUnsupportedFormat Outcome = "unsupported_format"
	OutcomeFetchError        Outcome = "fetch_error"
	OutcomeUploadError       Outcome = "upload_error"
)

// ResourceResult is the per-resource outcome of a build attempt.
type ResourceResult struct {
	ResourceID string
	URL        string
	Outcome    Outcome
	FileID     string
}

// FailureReason classifies why no usable store could be built for a dataset.
type FailureReason string

const (
	FailureNoResources      FailureReason = "no_resources"
	FailureAllFilesTooLarge FailureReason = "all_files_too_large"
	FailureNoValidFormats   FailureReason = "no_valid_formats"
	FailureAllFilesFailed   FailureReason = "all_files_failed"
	FailureProcessing       FailureReason = "processing_failed"
)

// BuildError is the typed per-dataset failure a build returns. It is a
// configuration or processing problem with the dataset's resources, never a
// fatal provider error.
type BuildError struct {
	Reason FailureReason
	Detail string
}

func (e *BuildError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Store is a ready knowledge store plus the uploaded files backing it. The
// owner must call Release when the verification pass for its dataset ends.
type Store struct {
	ID string

	index   Index
	fileIDs []string
	logger  *slog.Logger

	mu       sync.Mutex
	released bool
}

// NewStore wraps an existing knowledge store id and its uploaded file ids so
// the caller can manage their release.
func NewStore(index Index, id string, fileIDs []string, logger *slog.Logger) *Store {
	return &Store{ID: id, index: index, fileIDs: fileIDs, logger: logger}
}

// Release deletes the store and every uploaded file. Safe to call more than
// once; repeated calls are no-ops. Deletes treat "not found" as success.
func (s *Store) Release(ctx context.Context) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.ID != "" {
		if err := s.index.DeleteVectorStore(ctx, s.ID); err != nil {
			s.logger.Warn("failed to delete knowledge store", "store_id", s.ID, "error", err)
		}
	}
	for _, fileID := range s.fileIDs {
		if err := s.index.DeleteFile(ctx, fileID); err != nil {
			s.logger.Warn("failed to delete uploaded file", "file_id", fileID, "error", err)
		}
	}
}

// Builder turns a dataset's resources into a ready knowledge store.
type Builder struct {
	index  Index
	http   *http.Client
	logger *slog.Logger
	clock  Clock
	stats  *metrics.Collector

	maxFileSize  int64
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewBuilder creates a builder with production timing defaults. stats may be
// nil.
func NewBuilder(index Index, stats *metrics.Collector, logger *slog.Logger) *Builder {
	return &Builder{
		index:        index,
		http:         &http.Client{Timeout: 2 * time.Minute},
		logger:       logger,
		clock:        realClock{},
		stats:        stats,
		maxFileSize:  MaxFileSize,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
}

// Build uploads the dataset's eligible resource files, creates a knowledge
// store and waits until it is ready. On any error after an upload or store
// creation, everything created so far is released before returning. The
// returned results always cover every resource, whatever the error.
func (b *Builder) Build(ctx context.Context, datasetID string, resources []models.Resource) (*Store, []ResourceResult, error) {
	qualifying := 0
	for _, r := range resources {
		if r.URL != "" && r.Format != "" {
			qualifying++
		}
	}
	if qualifying == 0 {
		return nil, nil, &BuildError{
			Reason: FailureNoResources,
			Detail: fmt.Sprintf("dataset %s has no resources with both a url and a format", datasetID),
		}
	}

	store := &Store{index: b.index, logger: b.logger}
	ok := false
	defer func() {
		if !ok {
			// Teardown must run even when the build was cancelled.
			store.Release(context.WithoutCancel(ctx))
		}
	}()

	results := make([]ResourceResult, 0, len(resources))
	for _, r := range resources {
		result := b.processResource(ctx, r)
		if result.Outcome == OutcomeSuccess {
			store.fileIDs = append(store.fileIDs, result.FileID)
		}
		results = append(results, result)
		if ctx.Err() != nil {
			return nil, results, ctx.Err()
		}
	}

	if len(store.fileIDs) == 0 {
		return nil, results, aggregateFailure(results)
	}

	storeID, err := b.index.CreateVectorStore(ctx, "veridata-"+datasetID)
	if err != nil {
		return nil, results, fmt.Errorf("create knowledge store: %w", err)
	}
	store.ID = storeID
	b.logger.Info("knowledge store created", "dataset_id", datasetID, "store_id", storeID, "files", len(store.fileIDs))

	for _, fileID := range store.fileIDs {
		if err := b.index.AttachFile(ctx, storeID, fileID); err != nil {
			return nil, results, fmt.Errorf("attach file %s: %w", fileID, err)
		}
	}

	poller := &readinessPoller{
		index:    b.index,
		storeID:  storeID,
		interval: b.pollInterval,
		timeout:  b.pollTimeout,
		clock:    b.clock,
	}
	started := b.clock.Now()
	state, err := poller.wait(ctx)
	b.stats.Record(metrics.OpStorePoll, b.clock.Now().Sub(started), err != nil || state != stateReady)
	if err != nil {
		return nil, results, fmt.Errorf("poll knowledge store: %w", err)
	}
	if state != stateReady {
		return nil, results, &BuildError{
			Reason: FailureProcessing,
			Detail: fmt.Sprintf("knowledge store %s ended in state %s", storeID, state),
		}
	}

	ok = true
	return store, results, nil
}

// processResource validates, downloads and uploads one resource.
func (b *Builder) processResource(ctx context.Context, r models.Resource) ResourceResult {
	result := ResourceResult{ResourceID: r.ID, URL: r.URL}

	if r.URL == "" {
		result.Outcome = OutcomeInvalidURL
		return result
	}
	if r.Format == "" {
		result.Outcome = OutcomeNoFormat
		return result
	}
	if r.SizeBytes > b.maxFileSize {
		result.Outcome = OutcomeTooLarge
		return result
	}

	parsed, err := url.Parse(r.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		result.Outcome = OutcomeInvalidURL
		return result
	}

	ext, supported := normalizeFormat(r.Format)
	if !supported {
		result.Outcome = OutcomeUnsupportedFormat
		return result
	}

	started := b.clock.Now()
	data, err := b.fetch(ctx, r.URL)
	b.stats.Record(metrics.OpResourceFetch, b.clock.Now().Sub(started), err != nil)
	if err != nil {
		b.logger.Warn("resource fetch failed", "resource_id", r.ID, "url", r.URL, "error", err)
		result.Outcome = OutcomeFetchError
		return result
	}
	// Declared sizes lie; re-check the actual bytes.
	if int64(len(data)) > b.maxFileSize {
		result.Outcome = OutcomeTooLarge
		return result
	}

	name := r.ID
	if name == "" {
		name = "resource"
	}
	started = b.clock.Now()
	fileID, err := b.index.CreateFile(ctx, data, fmt.Sprintf("%s.%s", name, ext))
	b.stats.Record(metrics.OpUpload, b.clock.Now().Sub(started), err != nil)
	if err != nil {
		b.logger.Warn("resource upload failed", "resource_id", r.ID, "error", err)
		result.Outcome = OutcomeUploadError
		return result
	}

	result.Outcome = OutcomeSuccess
	result.FileID = fileID
	return result
}

func (b *Builder) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Read one byte past the ceiling so oversized bodies are detectable
	// without buffering them whole.
	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// aggregateFailure classifies a build where no resource survived.
func aggregateFailure(results []ResourceResult) *BuildError {
	allTooLarge := true
	allUnsupported := true
	for _, r := range results {
		if r.Outcome == OutcomeInvalidURL || r.Outcome == OutcomeNoFormat {
			continue
		}
		if r.Outcome != OutcomeTooLarge {
			allTooLarge = false
		}
		if r.Outcome != OutcomeUnsupportedFormat {
			allUnsupported = false
		}
	}

	switch {
	case allTooLarge && !allUnsupported:
		return &BuildError{
			Reason: FailureAllFilesTooLarge,
			Detail: fmt.Sprintf("all resource files exceed the %d MB limit", MaxFileSize>>20),
		}
	case allUnsupported && !allTooLarge:
		return &BuildError{
			Reason: FailureNoValidFormats,
			Detail: "no resources with supported formats",
		}
	default:
		return &BuildError{
			Reason: FailureAllFilesFailed,
			Detail: "every resource file failed to download or upload",
		}
	}
}
