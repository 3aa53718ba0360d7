// Package provider defines the schedule source contract shared by the ESPN
// and Ticketmaster clients, plus the helpers both use to turn upstream events
// into model.Game values.
//
// Sources only fetch and map. Nothing in backup or sync depends on which
// source produced a schedule.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

// --------------------------------------------------------------------------
// Error codes
// --------------------------------------------------------------------------

type ErrorCode string

const (
	CodeInvalidLeague ErrorCode = "INVALID_LEAGUE"
	CodeFetchFailed   ErrorCode = "FETCH_FAILED"
	CodeHTTPError     ErrorCode = "HTTP_ERROR"
	CodeParseError    ErrorCode = "PARSE_ERROR"
	CodeTeamNotFound  ErrorCode = "TEAM_NOT_FOUND"
	CodeNoSchedule    ErrorCode = "NO_SCHEDULE"
	CodeAPIKeyMissing ErrorCode = "API_KEY_MISSING"
	CodeTimeout       ErrorCode = "TIMEOUT"
)

// Error is returned by every Source. Code is what callers branch on; Err
// carries the underlying cause for logs.
type Error struct {
	Code   ErrorCode
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error with a formatted cause.
func Errorf(source string, code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Source: source, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the error code from err. Deadline errors map to TIMEOUT and
// anything unrecognised to FETCH_FAILED.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeFetchFailed
}

// --------------------------------------------------------------------------
// Source contract
// --------------------------------------------------------------------------

// Request identifies the team whose home schedule is wanted.
type Request struct {
	LeagueID         string
	TeamID           string
	TeamName         string
	TeamAbbreviation string

	// Location renders the display fields (date, month, day, time).
	// Nil means UTC.
	Location *time.Location
}

// CacheKey is a stable key for caching a schedule response.
func (r Request) CacheKey() string {
	loc := "UTC"
	if r.Location != nil {
		loc = r.Location.String()
	}
	return strings.ToLower(strings.Join([]string{
		"schedule", strings.TrimSpace(r.LeagueID), strings.TrimSpace(r.TeamID),
		strings.TrimSpace(r.TeamName), strings.TrimSpace(r.TeamAbbreviation),
	}, "|")) + "|" + loc
}

func (r Request) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Source fetches a team's home schedule.
type Source interface {
	Name() string
	FetchSchedule(ctx context.Context, req Request) ([]model.Game, error)
}
