package client

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{status: 200, expected: ""},
		{status: 400, expected: ErrorClassClient},
		{status: 404, expected: ErrorClassClient},
		{status: 429, expected: ErrorClassClient},
		{status: 500, expected: ErrorClassServer},
		{status: 503, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "with underlying error",
			err: &APIError{
				Endpoint:   "/items",
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection refused"),
			},
			expected: "items API server error (status 500) on /items: internal server error: connection refused",
		},
		{
			name: "without underlying error",
			err: &APIError{
				Endpoint:   "/items/1/detail",
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "items API client error (status 404) on /items/1/detail: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "test",
		Err:        underlying,
	}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) {
		t.Error("errors.As should match *APIError")
	}
}
