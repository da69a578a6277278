package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// RemoteError represents a non-success response from a remote datastore API
type RemoteError struct {
	Message    string
	StatusCode int
	APIMessage string // Error message from the remote API if available
}

func (e *RemoteError) Error() string {
	if e.APIMessage != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.StatusCode, e.APIMessage)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// NewRemoteError creates a new remote API error
func NewRemoteError(statusCode int, apiMessage string) *RemoteError {
	var message string

	switch statusCode {
	case 401:
		message = "Invalid or missing API token"
	case 403:
		if strings.Contains(strings.ToLower(apiMessage), "permission") {
			message = "Token lacks permission for this table"
		} else {
			message = "Access forbidden - check API token and insert plugin settings"
		}
	case 404:
		message = "Remote table or database not found"
	default:
		message = "Remote datastore error"
	}

	return &RemoteError{
		Message:    message,
		StatusCode: statusCode,
		APIMessage: strings.TrimSpace(apiMessage),
	}
}

// IsRemoteError checks if error is a RemoteError
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return stdErrors.As(err, &remoteErr)
}
