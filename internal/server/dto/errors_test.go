package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "resource not found")
		if err.StatusCode() != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, err.StatusCode())
		}
		if err.Code() != ErrorCodeNotFound {
			t.Errorf("Expected code %s, got %s", ErrorCodeNotFound, err.Code())
		}
		if err.Error() != "resource not found" {
			t.Errorf("Expected message 'resource not found', got '%s'", err.Error())
		}
		if err.Details() == nil {
			t.Error("Expected Details() to return non-nil map")
		}
	})
	t.Run("WithDetails", func(t *testing.T) {
		t.Run("adds details", func(t *testing.T) {
			err := NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, "validation failed").
				WithDetails(map[string]any{"field": "email", "reason": "invalid format"})
			if err.Details()["field"] != "email" {
				t.Errorf("Expected field 'email', got %v", err.Details()["field"])
			}
			if err.Details()["reason"] != "invalid format" {
				t.Errorf("Expected reason 'invalid format', got %v", err.Details()["reason"])
			}
		})
		t.Run("initializes nil map", func(t *testing.T) {
			err := (&APIError{
				statusCode: http.StatusBadRequest,
				code:       ErrorCodeValidationFailed,
				message:    "test",
				details:    nil,
			}).WithDetails(map[string]any{"key": "value"})
			if err.Details()["key"] != "value" {
				t.Error("Expected WithDetails to initialize nil map")
			}
		})
	})
	t.Run("WithDetail", func(t *testing.T) {
		t.Run("adds single detail", func(t *testing.T) {
			err := NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, "validation failed").
				WithDetail("field", "username")
			if err.Details()["field"] != "username" {
				t.Errorf("Expected field 'username', got %v", err.Details()["field"])
			}
		})
		t.Run("initializes nil map", func(t *testing.T) {
			err := (&APIError{
				statusCode: http.StatusBadRequest,
				code:       ErrorCodeValidationFailed,
				message:    "test",
				details:    nil,
			}).WithDetail("key", "value")
			if err.Details()["key"] != "value" {
				t.Error("Expected WithDetail to initialize nil map")
			}
		})
	})
	t.Run("Wrap", func(t *testing.T) {
		origErr := errors.New("original error")
		err := NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, "wrapped error").Wrap(origErr)
		if err.Unwrap() != origErr {
			t.Error("Expected Unwrap() to return the original error")
		}
		if err.Error() != "wrapped error: original error" {
			t.Errorf("Expected error message 'wrapped error: original error', got '%s'", err.Error())
		}
	})
}

func TestErrorConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("theme")
		if err.StatusCode() != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, err.StatusCode())
		}
		if err.Code() != ErrorCodeNotFound {
			t.Errorf("Expected code %s, got %s", ErrorCodeNotFound, err.Code())
		}
		if err.Error() != "theme not found" {
			t.Errorf("Expected message 'theme not found', got '%s'", err.Error())
		}
	})
	t.Run("BadRequest", func(t *testing.T) {
		err := BadRequest("invalid input")
		if err.StatusCode() != http.StatusBadRequest {
			t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, err.StatusCode())
		}
		if err.Code() != ErrorCodeValidationFailed {
			t.Errorf("Expected code %s, got %s", ErrorCodeValidationFailed, err.Code())
		}
		if err.Error() != "invalid input" {
			t.Errorf("Expected message 'invalid input', got '%s'", err.Error())
		}
	})
	t.Run("MissingField", func(t *testing.T) {
		err := MissingField("email")
		if err.StatusCode() != http.StatusBadRequest {
			t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, err.StatusCode())
		}
		if err.Code() != ErrorCodeMissingField {
			t.Errorf("Expected code %s, got %s", ErrorCodeMissingField, err.Code())
		}
		if err.Error() != "Missing required field: email" {
			t.Errorf("Expected message 'Missing required field: email', got '%s'", err.Error())
		}
	})
	t.Run("Forbidden", func(t *testing.T) {
		err := Forbidden("access denied")
		if err.StatusCode() != http.StatusForbidden {
			t.Errorf("Expected status code %d, got %d", http.StatusForbidden, err.StatusCode())
		}
		if err.Code() != ErrorCodeForbidden {
			t.Errorf("Expected code %s, got %s", ErrorCodeForbidden, err.Code())
		}
	})
	t.Run("Unauthorized", func(t *testing.T) {
		err := Unauthorized()
		if err.StatusCode() != http.StatusUnauthorized {
			t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, err.StatusCode())
		}
		if err.Code() != ErrorCodeUnauthorized {
			t.Errorf("Expected code %s, got %s", ErrorCodeUnauthorized, err.Code())
		}
	})
	t.Run("Internal", func(t *testing.T) {
		err := Internal("server error")
		if err.StatusCode() != http.StatusInternalServerError {
			t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, err.StatusCode())
		}
		if err.Code() != ErrorCodeInternal {
			t.Errorf("Expected code %s, got %s", ErrorCodeInternal, err.Code())
		}
	})
	t.Run("InternalWithError", func(t *testing.T) {
		origErr := errors.New("git commit failed")
		err := InternalWithError("failed to publish theme", origErr)
		if err.StatusCode() != http.StatusInternalServerError {
			t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, err.StatusCode())
		}
		if err.Unwrap() != origErr {
			t.Error("Expected InternalWithError to wrap the original error")
		}
	})
	t.Run("InvalidField", func(t *testing.T) {
		err := InvalidField("email", "must be an address")
		if err.Code() != ErrorCodeInvalidFormat {
			t.Errorf("Expected code %s, got %s", ErrorCodeInvalidFormat, err.Code())
		}
		if err.Details()["field"] != "email" {
			t.Errorf("Expected field detail 'email', got %v", err.Details()["field"])
		}
	})
	t.Run("InvalidTheme", func(t *testing.T) {
		err := InvalidTheme(map[string]any{"colors.light.primary": "bad color", "motion.easing": "unknown"})
		if err.StatusCode() != http.StatusBadRequest {
			t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, err.StatusCode())
		}
		if len(err.Details()) != 2 {
			t.Errorf("Expected 2 details, got %v", err.Details())
		}
		if err.Error() != "theme config has 2 invalid field(s)" {
			t.Errorf("Unexpected message %q", err.Error())
		}
	})
	t.Run("PayloadTooLarge", func(t *testing.T) {
		err := PayloadTooLarge(1024)
		if err.StatusCode() != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected status code %d, got %d", http.StatusRequestEntityTooLarge, err.StatusCode())
		}
		if err.Details()["limit"] != int64(1024) {
			t.Errorf("Expected limit detail 1024, got %v", err.Details()["limit"])
		}
	})
	t.Run("RateLimitExceeded", func(t *testing.T) {
		err := RateLimitExceeded(30)
		if err.StatusCode() != http.StatusTooManyRequests {
			t.Errorf("Expected status code %d, got %d", http.StatusTooManyRequests, err.StatusCode())
		}
		if err.Details()["retry_after"] != 30 {
			t.Errorf("Expected retry_after 30, got %v", err.Details()["retry_after"])
		}
	})
	t.Run("Conflict", func(t *testing.T) {
		err := Conflict("slug already in use")
		if err.StatusCode() != http.StatusConflict || err.Code() != ErrorCodeConflict {
			t.Errorf("got %d %s", err.StatusCode(), err.Code())
		}
	})
	t.Run("QuotaExceeded", func(t *testing.T) {
		err := QuotaExceeded("theme")
		if err.Error() != "theme quota exceeded" {
			t.Errorf("Unexpected message %q", err.Error())
		}
	})
}
