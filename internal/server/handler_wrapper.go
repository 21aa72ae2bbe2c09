// Provides the generic wrappers turning typed handler functions into
// http.Handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/ksid"
	"github.com/maruel/showroom/internal/config"
	"github.com/maruel/showroom/internal/gitrepo"
	"github.com/maruel/showroom/internal/identity"
	"github.com/maruel/showroom/internal/server/dto"
	"github.com/maruel/showroom/internal/server/ipgeo"
	"github.com/maruel/showroom/internal/server/ratelimit"
	"github.com/maruel/showroom/internal/server/reqctx"
)

// Env holds the shared dependencies of the wrappers.
type Env struct {
	Cfg      *config.ServerConfig
	Users    *identity.UserService
	Sessions *identity.SessionService
	Limiters *ratelimit.Config
	// DataRepo records every mutating request as a commit. Optional.
	DataRepo *gitrepo.Repo
	// Geo resolves client countries. Optional.
	Geo *ipgeo.Checker
}

func (e *Env) maxBodyBytes() int64 {
	if e == nil || e.Cfg == nil {
		return 0
	}
	return e.Cfg.Quotas.MaxRequestBodyBytes
}

func (e *Env) limiters() *ratelimit.Config {
	if e == nil {
		return nil
	}
	return e.Limiters
}

// GitAuthor returns the commit author recorded for changes made by user.
func GitAuthor(user *identity.User) gitrepo.Author {
	if user == nil {
		return gitrepo.Author{}
	}
	return gitrepo.Author{Name: user.Name, Email: user.Email}
}

// addRequestMetadataToContext adds client IP, User-Agent and country code to
// the context.
func addRequestMetadataToContext(ctx context.Context, r *http.Request, geo *ipgeo.Checker) context.Context {
	ip := reqctx.GetClientIP(r)
	ctx = reqctx.WithClientIP(ctx, ip)
	ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
	if reqctx.CountryCode(ctx) == "" {
		ctx = reqctx.WithCountryCode(ctx, geo.CountryCode(ip))
	}
	return ctx
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// commitDataIfMutating commits the data directory after a mutating request.
//
// It runs regardless of the handler outcome since a failing handler may have
// written rows already. Nothing is committed when no file changed.
func commitDataIfMutating(ctx context.Context, r *http.Request, env *Env, author gitrepo.Author) {
	if env == nil || env.DataRepo == nil || !isMutating(r.Method) {
		return
	}
	msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
	if _, err := env.DataRepo.CommitTx(ctx, author, func() (string, []string, error) { return msg, nil, nil }); err != nil {
		slog.ErrorContext(ctx, "Failed to commit data changes", "err", err)
	}
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(w http.ResponseWriter, tier *ratelimit.Tier, identifier string) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	result := tier.Limiter.Allow(ratelimit.BuildKey(tier.Scope, identifier, tier.Name))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		writeRateLimitError(w, result)
		return w, false
	}
	return w, true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON
// into input. Returns false if an error was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, limit int64) bool {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIError(w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeAPIError(w, dto.BadRequest("Failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.WarnContext(ctx, "Failed to decode request body", "err", err)
			writeAPIError(w, dto.BadRequest("Invalid request body: "+err.Error()))
			return false
		}
	}
	return true
}

// decodeRequest decodes the body, path and query parameters of r into a new
// In and validates it. Returns nil if an error was written to the response.
func decodeRequest[In any, PtrIn interface {
	*In
	dto.Validatable
}](ctx context.Context, w http.ResponseWriter, r *http.Request, env *Env) PtrIn {
	input := new(In)
	if !readAndDecodeBody(ctx, w, r, input, env.maxBodyBytes()) {
		return nil
	}
	populatePathParams(r, input)
	populateQueryParams(r, input)
	if err := PtrIn(input).Validate(); err != nil {
		handleValidationError(ctx, w, err)
		return nil
	}
	return PtrIn(input)
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := dto.ErrorCodeInternal
		details := make(map[string]any)

		var ewsErr dto.ErrorWithStatus
		if errors.As(err, &ewsErr) {
			statusCode = ewsErr.StatusCode()
			errorCode = ewsErr.Code()
			if d := ewsErr.Details(); d != nil {
				details = d
			}
		}
		if statusCode >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		} else {
			slog.InfoContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		}
		writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a public handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters are extracted into struct fields tagged with `path:"name"`
// and query parameters into fields tagged with `query:"name"`.
//
// Example:
//
//	type GetPortfolioBySlugRequest struct {
//	    Slug string `path:"slug"`
//	}
//
//	func (h *Handler) GetBySlug(ctx context.Context, req *GetPortfolioBySlugRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), env *Env) http.Handler {
	var geo *ipgeo.Checker
	if env != nil {
		geo = env.Geo
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r, geo)

		var ok bool
		if tier := env.limiters().MatchUnauth(r.Method, r.URL.Path); tier != nil {
			if w, ok = checkRateLimit(w, tier, reqctx.ClientIP(ctx)); !ok {
				return
			}
		}

		input := decodeRequest[In, PtrIn](ctx, w, r, env)
		if input == nil {
			return
		}
		output, err := fn(ctx, input)
		commitDataIfMutating(ctx, r, env, gitrepo.Author{})
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAdmin wraps an administrator handler function to work as an
// http.Handler. The function must have signature:
// func(context.Context, *identity.User, *In) (*Out, error)
//
// The handler must be mounted behind RequireAdmin, which puts the user in
// the request context; without it every request is rejected with 401.
func WrapAdmin[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, *identity.User, PtrIn) (*Out, error), env *Env) http.Handler {
	var geo *ipgeo.Checker
	if env != nil {
		geo = env.Geo
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r, geo)
		user := reqctx.User(ctx)
		if user == nil {
			writeAPIError(w, dto.Unauthorized())
			return
		}

		if tier := env.limiters().MatchAuth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(w, tier, rateLimitIdentifier(ctx, tier, user)); !ok {
				return
			}
		}

		input := decodeRequest[In, PtrIn](ctx, w, r, env)
		if input == nil {
			return
		}
		output, err := fn(ctx, user, input)
		commitDataIfMutating(ctx, r, env, GitAuthor(user))
		writeJSONResponse(ctx, w, output, err)
	})
}

// rateLimitIdentifier returns the identifier for rate limiting based on scope.
func rateLimitIdentifier(ctx context.Context, tier *ratelimit.Tier, user *identity.User) string {
	if tier.Scope == ratelimit.ScopeUser && user != nil {
		return user.ID.String()
	}
	return reqctx.ClientIP(ctx)
}

// RequireAdmin returns a middleware accepting only requests carrying a valid
// bearer token of a live session. The user, session ID and token are added
// to the request context.
func RequireAdmin(env *Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, sessionID, token, err := validateJWTAndSession(r, env.Users, env.Sessions, []byte(env.Cfg.JWTSecret))
			if err != nil {
				slog.InfoContext(r.Context(), "Rejected admin request", "path", r.URL.Path, "err", err)
				writeAPIError(w, dto.Unauthorized().Wrap(err))
				return
			}
			ctx := reqctx.WithUser(r.Context(), user)
			ctx = reqctx.WithSessionID(ctx, sessionID)
			ctx = reqctx.WithTokenString(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var (
	errUnauthorized       = errors.New("unauthorized")
	errInvalidAuthHdr     = errors.New("invalid authorization header")
	errInvalidToken       = errors.New("invalid token")
	errInvalidClaims      = errors.New("invalid claims")
	errInvalidUserIDToken = errors.New("invalid user ID in token")
	errInvalidUserIDFmt   = errors.New("invalid user ID format")
	errUserNotFound       = errors.New("user not found")
	errSessionRevoked     = errors.New("session revoked")
)

// validateJWTAndSession extracts and validates the JWT token and its session.
// Returns the user, session ID, token string, and any error.
func validateJWTAndSession(r *http.Request, users *identity.UserService, sessions *identity.SessionService, jwtSecret []byte) (*identity.User, ksid.ID, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, 0, "", errUnauthorized
	}
	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		return nil, 0, "", errInvalidAuthHdr
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, 0, "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, 0, "", errInvalidClaims
	}
	userIDStr, ok := claims["sub"].(string)
	if !ok {
		return nil, 0, "", errInvalidUserIDToken
	}
	userID, err := ksid.Parse(userIDStr)
	if err != nil {
		return nil, 0, "", errInvalidUserIDFmt
	}
	user, err := users.Get(userID)
	if err != nil {
		return nil, 0, "", errUserNotFound
	}

	sidStr, _ := claims["sid"].(string)
	sessionID, err := ksid.Parse(sidStr)
	if err != nil {
		return nil, 0, "", errInvalidToken
	}
	valid, err := sessions.IsValid(sessionID, tokenString)
	if err != nil {
		return nil, 0, "", errInvalidToken
	}
	if !valid {
		return nil, 0, "", errSessionRevoked
	}
	return user, sessionID, tokenString, nil
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	typ := elem.Type()
	idType := reflect.TypeFor[ksid.ID]()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := r.PathValue(tag)
		if paramValue == "" {
			continue
		}
		switch {
		case field.Type.Kind() == reflect.String:
			elem.Field(i).SetString(paramValue)
		case field.Type == idType:
			if id, err := ksid.Parse(paramValue); err == nil {
				elem.Field(i).Set(reflect.ValueOf(id))
			}
		}
	}
}

// populateQueryParams extracts query parameters from the request and
// populates struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		paramValue := query.Get(tag)
		if paramValue == "" {
			continue
		}
		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int:
			if intVal, err := strconv.Atoi(paramValue); err == nil {
				fieldVal.SetInt(int64(intVal))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(paramValue); err == nil {
				fieldVal.SetBool(b)
			}
		default:
			if fieldVal.CanAddr() {
				if unmarshaler, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
					_ = unmarshaler.UnmarshalText([]byte(paramValue))
				}
			}
		}
	}
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	details := make(map[string]any)

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		if d := ewsErr.Details(); d != nil {
			details = d
		}
	}

	slog.InfoContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

func writeAPIError(w http.ResponseWriter, err *dto.APIError) {
	writeErrorResponseWithCode(w, err.StatusCode(), err.Code(), err.Error(), err.Details())
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    code,
			Message: message,
		},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// writeRateLimitError writes a 429 rate limit error response.
func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	writeAPIError(w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
}
