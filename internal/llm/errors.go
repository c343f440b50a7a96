// Package llm wraps langchaingo models and classifies provider errors into
// the taxonomy the pipeline acts on: fatal (abort the job), rate-limited
// (skip the item, keep going), and everything else (log and continue).
package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/raphaelgruber/veridata-go/internal/openai"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrFatalAPI marks credential or billing failures. No further provider
	// call in this job can succeed, so the whole job must abort.
	ErrFatalAPI = errors.New("fatal provider error")

	// ErrRateLimited marks 429-class throttling. The current item is skipped
	// and processing continues with pacing.
	ErrRateLimited = errors.New("provider rate limited")
)

// fatal message fragments, used when the transport gives us no status code
// (langchaingo errors are plain strings).
var fatalPatterns = []string{
	"api key",
	"authentication",
	"unauthorized",
	"permission denied",
	"credit balance",
	"billing",
	"quota",
	"401",
	"402",
	"403",
}

var rateLimitPatterns = []string{
	"rate limit",
	"too many requests",
	"429",
}

// Classify wraps err with the matching sentinel, or returns it unchanged.
// Typed APIErrors are classified by status; quota exhaustion on a 429 counts
// as billing, not throttling.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrFatalAPI) || errors.Is(err, ErrRateLimited) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrFatalAPI, err)
		case http.StatusTooManyRequests:
			if containsAny(apiErr.Message, "quota", "billing") {
				return fmt.Errorf("%w: %w", ErrFatalAPI, err)
			}
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		default:
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return fmt.Errorf("%w: %w", ErrFatalAPI, err)
		}
	}
	return err
}

// IsFatal reports whether err is a classified fatal provider error.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalAPI)
}

// IsRateLimited reports whether err is a classified throttling error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func containsAny(s string, substrs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
