// Package models defines data structures for the veridata analysis pipeline.
package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SentinelScore marks a response that could not be scored, as opposed to a
// response that has not been processed yet (nil score).
const SentinelScore float64 = -1

// Analysis is the verdict for a single statement checked against a dataset's
// knowledge store.
type Analysis struct {
	Comment         string  `json:"comment"`
	Accepted        bool    `json:"accepted"`
	MatchPercentage float64 `json:"match_percentage"`
}

// Statement is one atomic claim extracted from a comment. IDs are unique only
// within the response that owns the statement.
type Statement struct {
	ID       int       `json:"id"`
	Text     string    `json:"text"`
	Category string    `json:"category"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Flag     bool      `json:"flag"`
}

// MessageKind discriminates the two variants of a ResponseMessage.
type MessageKind int

const (
	// MessageOk carries extracted statements.
	MessageOk MessageKind = iota
	// MessageErr carries an error description. Statements from a previous Ok
	// payload are preserved alongside the error, never discarded.
	MessageErr
)

// ResponseMessage is the persisted payload of a response. It is a tagged union:
// exactly one variant is authoritative at a time, discriminated by Kind().
// Merging an error into an Ok payload keeps the statements (additive merge).
type ResponseMessage struct {
	Statements []Statement `json:"statements,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OkMessage builds the Ok variant.
func OkMessage(statements []Statement) ResponseMessage {
	return ResponseMessage{Statements: statements}
}

// ErrMessage builds the Err variant.
func ErrMessage(text string) ResponseMessage {
	return ResponseMessage{Error: text}
}

// Kind reports which variant the message currently is.
func (m ResponseMessage) Kind() MessageKind {
	if m.Error != "" {
		return MessageErr
	}
	return MessageOk
}

// WithError returns the message switched to the Err variant while preserving
// any existing statements.
func (m ResponseMessage) WithError(text string) ResponseMessage {
	m.Error = text
	return m
}

// Response is a persisted analysis of one comment. Score semantics:
// nil = not yet processed, SentinelScore = processed but unscorable,
// otherwise a value in [0, 100].
type Response struct {
	ID        surrealmodels.RecordID `json:"id"`
	CommentID surrealmodels.RecordID `json:"comment_id"`
	DatasetID string                 `json:"dataset_id"`
	Score     *float64               `json:"score,omitempty"`
	Message   ResponseMessage        `json:"message"`
	Created   time.Time              `json:"created,omitempty"`
	Updated   time.Time              `json:"updated,omitempty"`
}

// Scored reports whether the response has been processed (scored or sentinel).
func (r *Response) Scored() bool {
	return r.Score != nil
}

// RecordIDString returns the string part of a record id. Every id in the
// comment, dataset and response tables is a string; any other type means the
// row was not written by this pipeline.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// MustRecordIDString is RecordIDString for ids already read back from the
// database, where the string invariant holds.
func MustRecordIDString(id surrealmodels.RecordID) string {
	s, err := RecordIDString(id)
	if err != nil {
		panic(err)
	}
	return s
}
