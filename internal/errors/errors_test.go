package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNotConnectedError(t *testing.T) {
	err := NewNotConnectedError("upload_data")

	if !strings.Contains(err.Error(), "upload_data") {
		t.Fatalf("Error message %q does not name the operation", err.Error())
	}

	if !IsNotConnected(fmt.Errorf("wrapped: %w", err)) {
		t.Fatalf("IsNotConnected returned false for wrapped NotConnectedError")
	}

	if IsNotConnected(stdErrors.New("other")) {
		t.Fatalf("IsNotConnected returned true for unrelated error")
	}
}

func TestSchemaError(t *testing.T) {
	tests := []struct {
		name     string
		err      *SchemaError
		expected string
	}{
		{
			name:     "table-wide reason",
			err:      NewSchemaError("users", "", "schema has no columns", nil),
			expected: `schema error for table "users": schema has no columns`,
		},
		{
			name:     "column with cause",
			err:      NewSchemaError("users", "bad name", "invalid column name", ErrInvalidIdentifier),
			expected: `schema error for table "users" column "bad name": invalid column name: invalid identifier`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Fatalf("Error message = %q, want %q", tt.err.Error(), tt.expected)
			}
			if !IsSchemaError(tt.err) {
				t.Fatalf("IsSchemaError returned false")
			}
		})
	}

	if !stdErrors.Is(NewSchemaError("t", "c", "bad", ErrInvalidIdentifier), ErrInvalidIdentifier) {
		t.Fatalf("SchemaError does not unwrap to its cause")
	}
}

func TestUploadError(t *testing.T) {
	cause := stdErrors.New("UNIQUE constraint failed: users.id")

	err := NewUploadError("users", 2, cause)
	expected := `upload to "users" failed at record 2: UNIQUE constraint failed: users.id`
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("UploadError does not unwrap to the engine error")
	}

	batchErr := NewUploadError("users", -1, cause)
	if strings.Contains(batchErr.Error(), "record") {
		t.Fatalf("batch-level error should not mention a record index: %q", batchErr.Error())
	}

	if !IsUploadError(stdErrors.Join(err, stdErrors.New("close failed"))) {
		t.Fatalf("IsUploadError returned false for joined UploadError")
	}
}

func TestQueryError(t *testing.T) {
	err := NewQueryError("missing", "", ErrNoSuchTable)

	if err.Error() != `query on "missing" failed: no such table` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsQueryError(err) || !stdErrors.Is(err, ErrNoSuchTable) {
		t.Fatalf("QueryError should match IsQueryError and wrap ErrNoSuchTable")
	}
}

func TestIOError(t *testing.T) {
	err := NewIOError("/nope/db.sqlite", stdErrors.New("unable to open database file"))

	if !IsIOError(err) {
		t.Fatalf("IsIOError returned false for IOError")
	}
	if !strings.Contains(err.Error(), "/nope/db.sqlite") {
		t.Fatalf("Error message %q does not include the path", err.Error())
	}
}

func TestRemoteError(t *testing.T) {
	tests := []struct {
		status   int
		api      string
		expected string
	}{
		{401, "", "Invalid or missing API token (HTTP 401)"},
		{403, "Permission denied for insert", "Token lacks permission for this table (HTTP 403): Permission denied for insert"},
		{403, "nope", "Access forbidden - check API token and insert plugin settings (HTTP 403): nope"},
		{404, "", "Remote table or database not found (HTTP 404)"},
		{500, "  boom \n", "Remote datastore error (HTTP 500): boom"},
	}

	for _, tt := range tests {
		err := NewRemoteError(tt.status, tt.api)
		if err.Error() != tt.expected {
			t.Fatalf("Error message = %q, want %q", err.Error(), tt.expected)
		}
		if !IsRemoteError(fmt.Errorf("ctx: %w", err)) {
			t.Fatalf("IsRemoteError returned false for wrapped RemoteError")
		}
	}
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(stdErrors.Join(err)) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestRateLimitErrorWithRetry(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{name: "zero", duration: 0, expectedMessage: "rate limited"},
		{name: "30 seconds", duration: 30 * time.Second, expectedMessage: "rate limited (retry after 30s)"},
		{name: "2 minutes", duration: 2 * time.Minute, expectedMessage: "rate limited (retry after 2m0s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
		})
	}
}
