package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/raphaelgruber/veridata-go/internal/openai"
)

func TestClassifyByStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		message     string
		wantFatal   bool
		wantLimited bool
	}{
		{"401 invalid key", 401, "Incorrect API key provided", true, false},
		{"402 billing", 402, "payment required", true, false},
		{"403 forbidden", 403, "forbidden", true, false},
		{"429 throttle", 429, "Rate limit reached, retry after 2s", false, true},
		{"429 quota is billing", 429, "You exceeded your current quota", true, false},
		{"500 transient", 500, "internal error", false, false},
		{"404 missing", 404, "no such model", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("query: %w", &openai.APIError{StatusCode: tt.status, Message: tt.message})
			got := Classify(err)
			if IsFatal(got) != tt.wantFatal {
				t.Errorf("IsFatal = %v, want %v (err: %v)", IsFatal(got), tt.wantFatal, got)
			}
			if IsRateLimited(got) != tt.wantLimited {
				t.Errorf("IsRateLimited = %v, want %v (err: %v)", IsRateLimited(got), tt.wantLimited, got)
			}
		})
	}
}

func TestClassifyByMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantFatal   bool
		wantLimited bool
	}{
		{"nil error", nil, false, false},
		{"generic error", errors.New("connection reset"), false, false},
		{"credit balance", errors.New("insufficient credit balance"), true, false},
		{"billing issue", errors.New("billing account inactive"), true, false},
		{"invalid api key", errors.New("invalid api key"), true, false},
		{"authentication failed", errors.New("authentication failed"), true, false},
		{"unauthorized", errors.New("unauthorized request"), true, false},
		{"401 status text", errors.New("HTTP 401: not allowed"), true, false},
		{"rate limit text", errors.New("rate limit exceeded"), false, true},
		{"too many requests", errors.New("too many requests, slow down"), false, true},
		{"wrapped fatal", fmt.Errorf("generate: %w", errors.New("credit balance too low")), true, false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if IsFatal(got) != tt.wantFatal {
				t.Errorf("IsFatal = %v, want %v", IsFatal(got), tt.wantFatal)
			}
			if IsRateLimited(got) != tt.wantLimited {
				t.Errorf("IsRateLimited = %v, want %v", IsRateLimited(got), tt.wantLimited)
			}
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	err := Classify(errors.New("invalid api key"))
	again := Classify(err)
	if again != err {
		t.Errorf("already-classified error should pass through unchanged")
	}
}
