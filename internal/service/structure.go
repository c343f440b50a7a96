package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/raphaelgruber/veridata-go/internal/llm"
	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/raphaelgruber/veridata-go/internal/parser"
)

// structureInstructions is the fixed prompt for splitting a comment into
// discrete categorized claims.
const structureInstructions = `You analyze user comments left on open data portal datasets.
Split the comment into discrete, self-contained factual claims about the dataset.
Each claim must be verifiable on its own, without reading the other claims.
Assign each claim a category: one of "data quality", "completeness", "licensing", "timeliness", "documentation", "access", "other".
Ignore greetings, thanks and opinions that contain no checkable claim.
Respond with JSON matching exactly: {"statements": [{"id": <number starting at 1>, "text": "<claim>", "category": "<category>"}]}.
If the comment contains no checkable claim, respond with {"statements": []}.`

// Completer is the LLM collaborator the structurer needs.
type Completer interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Structurer turns one raw comment into a list of categorized statements.
type Structurer struct {
	llm    Completer
	logger *slog.Logger
}

// NewStructurer creates a structurer backed by the given completion model.
func NewStructurer(completer Completer, logger *slog.Logger) *Structurer {
	return &Structurer{llm: completer, logger: logger}
}

type structuredStatement struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

type structuredOutput struct {
	Statements []structuredStatement `json:"statements"`
}

// Structure extracts statements from a raw comment. Schema mismatches and
// recoverable provider errors yield an empty list; the caller treats that as
// processed-but-empty. Fatal provider errors propagate so the whole run can
// abort.
func (s *Structurer) Structure(ctx context.Context, rawComment string) ([]models.Statement, error) {
	cleaned := parser.CleanComment(rawComment)
	if cleaned == "" {
		return nil, nil
	}

	raw, err := s.llm.GenerateJSON(ctx, structureInstructions, cleaned)
	if err != nil {
		if llm.IsFatal(err) {
			return nil, err
		}
		s.logger.Warn("statement extraction failed", "error", err)
		return nil, nil
	}

	var out structuredOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("statement extraction returned malformed output", "error", err)
		return nil, nil
	}

	statements := make([]models.Statement, 0, len(out.Statements))
	for _, st := range out.Statements {
		if st.Text == "" {
			continue
		}
		statements = append(statements, models.Statement{
			ID:       st.ID,
			Text:     st.Text,
			Category: st.Category,
		})
	}
	return statements, nil
}
