// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
)

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FromAppError converts an AppError for embedding in a response body.
func FromAppError(err *apperror.AppError) *ErrorResponse {
	if err == nil {
		return nil
	}
	return &ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}
}

// --- List Response ---

// ListResponse wraps list results with paging metadata.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit,omitempty"`
	Offset     int   `json:"offset,omitempty"`
}

// ParseID parses a path or body UUID, returning a validation error naming
// the field.
func ParseID(value, field string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}
