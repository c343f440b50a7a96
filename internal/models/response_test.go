package models

import (
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestResponseMessageKind(t *testing.T) {
	tests := []struct {
		name string
		msg  ResponseMessage
		want MessageKind
	}{
		{"empty ok", OkMessage(nil), MessageOk},
		{"statements ok", OkMessage([]Statement{{ID: 1, Text: "t"}}), MessageOk},
		{"error", ErrMessage("boom"), MessageErr},
		{"merged error", OkMessage([]Statement{{ID: 1}}).WithError("boom"), MessageErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithErrorPreservesStatements(t *testing.T) {
	msg := OkMessage([]Statement{
		{ID: 1, Text: "claim one", Category: "quality"},
		{ID: 2, Text: "claim two", Category: "coverage"},
	})

	merged := msg.WithError("store unavailable")

	if merged.Error != "store unavailable" {
		t.Errorf("Error = %q, want %q", merged.Error, "store unavailable")
	}
	if len(merged.Statements) != 2 {
		t.Fatalf("statements dropped on merge: got %d, want 2", len(merged.Statements))
	}
	if merged.Statements[0].Text != "claim one" {
		t.Errorf("statement content changed: %q", merged.Statements[0].Text)
	}
}

func TestResponseScored(t *testing.T) {
	var r Response
	if r.Scored() {
		t.Error("nil score should not count as scored")
	}

	sentinel := SentinelScore
	r.Score = &sentinel
	if !r.Scored() {
		t.Error("sentinel score should count as scored")
	}
}

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "comment", ID: "abc123"}

	got, err := RecordIDString(id)
	if err != nil {
		t.Fatalf("RecordIDString() error = %v", err)
	}
	if got != "abc123" {
		t.Errorf("RecordIDString() = %q, want %q", got, "abc123")
	}

	if _, err := RecordIDString(surrealmodels.RecordID{Table: "comment", ID: 42}); err == nil {
		t.Error("expected error for non-string ID")
	}
}

func TestMustRecordIDStringPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-string ID")
		}
	}()
	MustRecordIDString(surrealmodels.RecordID{Table: "comment", ID: 42})
}
