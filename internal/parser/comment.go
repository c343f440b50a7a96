// Package parser cleans raw user comments before they are handed to the LLM.
// Upstream ingestion delivers comment bodies as portal HTML fragments.
package parser

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	// Block-level tags become line breaks so sentences don't run together.
	blockRegex = regexp.MustCompile(`(?i)</?(p|div|br|li|ul|ol|h[1-6]|blockquote|tr)[^>]*>`)
)

// CleanComment strips HTML markup and normalizes whitespace. The result is a
// single-line plain-text comment suitable for prompting.
func CleanComment(raw string) string {
	text := blockRegex.ReplaceAllString(raw, " ")
	text = tagRegex.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
