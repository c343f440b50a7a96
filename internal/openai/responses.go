package openai

import (
	"context"
	"fmt"
)

// QueryRequest describes one structured completion. When VectorStoreID is set
// the model is given a file_search tool scoped to that store, grounding the
// answer in the indexed files.
type QueryRequest struct {
	Model         string
	Instructions  string
	Input         string
	SchemaName    string
	Schema        map[string]any
	VectorStoreID string
}

type responsesRequest struct {
	Model        string         `json:"model"`
	Instructions string         `json:"instructions,omitempty"`
	Input        string         `json:"input"`
	Tools        []any          `json:"tools,omitempty"`
	Text         map[string]any `json:"text,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// StructuredQuery runs a completion with a strict JSON schema and returns the
// raw model output text. Callers parse it against their own schema type.
func (c *Client) StructuredQuery(ctx context.Context, q QueryRequest) (string, error) {
	req := responsesRequest{
		Model:        q.Model,
		Instructions: q.Instructions,
		Input:        q.Input,
	}

	if q.VectorStoreID != "" {
		req.Tools = []any{map[string]any{
			"type":             "file_search",
			"vector_store_ids": []string{q.VectorStoreID},
		}}
	}

	if q.Schema != nil {
		req.Text = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   q.SchemaName,
				"schema": q.Schema,
				"strict": true,
			},
		}
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/responses", req, &resp); err != nil {
		return "", err
	}

	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				return content.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no output text in response")
}
