// Package respond writes the server's JSON responses. Schedule documents are
// public and cacheable; sync payloads and errors never are.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// ErrorBody is the payload inside the error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the envelope every failed request receives. Sync clients
// read Message as the reason shown to the user.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// --------------------------------------------------------------------------
// Success
// --------------------------------------------------------------------------

// Private writes v as JSON that no cache may store. Backups and sync
// metadata belong to one key holder.
func Private(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	writeValue(w, status, v)
}

// Cached writes a pre-encoded schedule document, or a 304 when the client
// already holds etag. hit reports whether data came from the cache.
func Cached(w http.ResponseWriter, r *http.Request, data []byte, etag string, ttl time.Duration, hit bool) {
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Vary", "Accept-Encoding")
	h.Set("Cache-Control", cacheControl(ttl))
	if hit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}

	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// cacheControl lets shared caches serve a stale schedule for half its
// lifetime while they revalidate. Uncached outcomes must be revalidated.
func cacheControl(ttl time.Duration) string {
	maxAge := int(ttl.Seconds())
	if maxAge <= 0 {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	ErrorDetail(w, status, code, message, "")
}

// ErrorDetail writes the error envelope with a machine-oriented detail.
func ErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeValue(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Detail: detail}})
}

// Invalid reports a request that failed decoding or validation. Validator
// errors are listed as "field: rule" pairs.
func Invalid(w http.ResponseWriter, message string, err error) {
	ErrorDetail(w, http.StatusBadRequest, syncproto.CodeValidation, message, validationDetail(err))
}

// RateLimited tells the client when a token will be available again.
func RateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return strings.Join(parts, "; ")
}

func writeValue(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
