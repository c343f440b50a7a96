package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/llm"
	"github.com/raphaelgruber/veridata-go/internal/models"
	"github.com/raphaelgruber/veridata-go/internal/openai"
)

// verifyPacing is the fixed delay between verification queries, success or
// failure, to stay under provider rate limits.
const verifyPacing = time.Second

const verifyInstructions = `You verify claims made about an open data dataset.
Search the attached resource files for evidence supporting or contradicting the claim.
Use the dataset metadata block only as context; evidence must come from the files.
Respond with JSON matching exactly: {"comment": "<short justification citing the evidence>", "accepted": <true if the claim holds>, "match_percentage": <0-100, how well the evidence supports the claim>}.`

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"comment":          map[string]any{"type": "string"},
		"accepted":         map[string]any{"type": "boolean"},
		"match_percentage": map[string]any{"type": "number"},
	},
	"required":             []string{"comment", "accepted", "match_percentage"},
	"additionalProperties": false,
}

// Querier is the grounded-query collaborator the verifier needs.
type Querier interface {
	StructuredQuery(ctx context.Context, q openai.QueryRequest) (string, error)
}

// Verifier checks statements one at a time against a dataset's knowledge
// store and aggregates an acceptance score.
type Verifier struct {
	index  Querier
	model  string
	logger *slog.Logger

	pace  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewVerifier creates a verifier that issues grounded queries with the given
// model.
func NewVerifier(index Querier, model string, logger *slog.Logger) *Verifier {
	return &Verifier{
		index:  index,
		model:  model,
		logger: logger,
		pace:   verifyPacing,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type verdict struct {
	Comment         string  `json:"comment"`
	Accepted        bool    `json:"accepted"`
	MatchPercentage float64 `json:"match_percentage"`
}

// Verify runs one grounded query per statement, sequentially with a fixed
// pacing delay. Rate limits and other recoverable errors leave that
// statement's analysis unset and processing continues; fatal provider errors
// propagate immediately. The returned score is the mean match percentage
// across all statements, with missing analyses counting as zero.
func (v *Verifier) Verify(ctx context.Context, storeID string, statements []models.Statement, metadata string, cancelled func() bool) ([]models.Statement, float64, error) {
	out := slices.Clone(statements)

	for i := range out {
		if cancelled != nil && cancelled() {
			return out, 0, errCancelled
		}

		raw, err := v.index.StructuredQuery(ctx, openai.QueryRequest{
			Model:         v.model,
			Instructions:  verifyInstructions,
			Input:         renderQuery(out[i].Text, metadata),
			SchemaName:    "statement_verdict",
			Schema:        verdictSchema,
			VectorStoreID: storeID,
		})
		if err != nil {
			err = llm.Classify(err)
			switch {
			case llm.IsFatal(err):
				return out, 0, err
			case llm.IsRateLimited(err):
				v.logger.Warn("verification rate limited, skipping statement", "statement_id", out[i].ID)
			default:
				v.logger.Warn("verification query failed", "statement_id", out[i].ID, "error", err)
			}
		} else {
			var vd verdict
			if jsonErr := json.Unmarshal([]byte(raw), &vd); jsonErr != nil {
				v.logger.Warn("verification returned malformed verdict", "statement_id", out[i].ID, "error", jsonErr)
			} else {
				out[i].Analysis = &models.Analysis{
					Comment:         vd.Comment,
					Accepted:        vd.Accepted,
					MatchPercentage: clampPercentage(vd.MatchPercentage),
				}
			}
		}

		if err := v.sleep(ctx, v.pace); err != nil {
			return out, 0, err
		}
	}

	return out, scoreStatements(out), nil
}

// scoreStatements averages match percentages over all statements. A statement
// without an analysis contributes zero but stays in the denominator.
func scoreStatements(statements []models.Statement) float64 {
	if len(statements) == 0 {
		return 0
	}
	var sum float64
	for _, st := range statements {
		if st.Analysis != nil {
			sum += st.Analysis.MatchPercentage
		}
	}
	return sum / float64(len(statements))
}

func clampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func renderQuery(statement, metadata string) string {
	if metadata == "" {
		return "Claim to verify: " + statement
	}
	return fmt.Sprintf("Dataset metadata:\n%s\nClaim to verify: %s", metadata, statement)
}

// renderMetadata builds the short dataset context block included with every
// verification query.
func renderMetadata(d *models.Dataset) string {
	if d == nil {
		return ""
	}

	var b strings.Builder
	write := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	write("Title", d.Title)
	write("Description", d.Description)
	write("Theme", d.Theme)
	write("Refresh cadence", d.RefreshCadence)
	write("URL", d.URL)
	write("License", d.License)
	if len(d.Tags) > 0 {
		write("Tags", strings.Join(d.Tags, ", "))
	}
	return b.String()
}
