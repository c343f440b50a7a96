package openai

import (
	"context"
	"fmt"
)

// File indexing states reported by the provider.
const (
	FileStatusInProgress = "in_progress"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
	FileStatusCancelled  = "cancelled"
)

// StoreFile is one file's membership record in a vector store.
type StoreFile struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type vectorStoreResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type storeFileList struct {
	Data []StoreFile `json:"data"`
}

// CreateVectorStore creates an empty vector store and returns its id.
func (c *Client) CreateVectorStore(ctx context.Context, name string) (string, error) {
	var store vectorStoreResponse
	err := c.do(ctx, "POST", "/vector_stores", map[string]any{"name": name}, &store)
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	if store.ID == "" {
		return "", fmt.Errorf("create vector store returned no id")
	}
	return store.ID, nil
}

// AttachFile adds an uploaded file to a vector store for indexing.
func (c *Client) AttachFile(ctx context.Context, storeID, fileID string) error {
	err := c.do(ctx, "POST", "/vector_stores/"+storeID+"/files",
		map[string]any{"file_id": fileID}, nil)
	if err != nil {
		return fmt.Errorf("attach file %s: %w", fileID, err)
	}
	return nil
}

// ListFiles returns the per-file indexing status for a vector store.
func (c *Client) ListFiles(ctx context.Context, storeID string) ([]StoreFile, error) {
	var list storeFileList
	err := c.do(ctx, "GET", "/vector_stores/"+storeID+"/files", nil, &list)
	if err != nil {
		return nil, fmt.Errorf("list store files: %w", err)
	}
	return list.Data, nil
}

// DeleteVectorStore removes a vector store. Already-deleted stores count as
// deleted.
func (c *Client) DeleteVectorStore(ctx context.Context, storeID string) error {
	err := c.do(ctx, "DELETE", "/vector_stores/"+storeID, nil, nil)
	return ignoreNotFound(err)
}
