// Provides the response writer injecting rate limit headers.

package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders sets the X-RateLimit-* headers, plus Retry-After when the
// request was refused.
func WriteHeaders(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// ResponseWriter injects rate limit headers before the first byte of the
// response is written.
type ResponseWriter struct {
	http.ResponseWriter
	result   Result
	injected bool
}

// NewResponseWriter wraps w so the headers of result reach the client with
// the handler's response.
func NewResponseWriter(w http.ResponseWriter, result Result) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, result: result}
}

func (rw *ResponseWriter) inject() {
	if !rw.injected {
		WriteHeaders(rw.ResponseWriter, rw.result)
		rw.injected = true
	}
}

// WriteHeader injects rate limit headers before writing the status code.
func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.inject()
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write injects rate limit headers before any body content.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.inject()
	return rw.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// BuildKey returns the bucket key "<scope>:<identifier>:<tier>".
func BuildKey(scope Scope, identifier, tierName string) string {
	return scope.String() + ":" + identifier + ":" + tierName
}

func (s Scope) String() string {
	switch s {
	case ScopeIP:
		return "ip"
	case ScopeUser:
		return "user"
	default:
		return "unknown"
	}
}
