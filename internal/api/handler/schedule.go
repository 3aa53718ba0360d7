package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api/respond"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

// ScheduleQuery is the query string accepted by GetSchedule.
type ScheduleQuery struct {
	LeagueID         string `json:"leagueId" validate:"required,max=32"`
	TeamID           string `json:"teamId" validate:"required_without=TeamName,max=64"`
	TeamName         string `json:"teamName" validate:"required_without=TeamID,max=128"`
	TeamAbbreviation string `json:"teamAbbreviation" validate:"max=16"`
	TZ               string `json:"tz" validate:"omitempty,timezone"`
}

// ScheduleResponse mirrors the schedule source contract: events on success,
// an error code otherwise.
type ScheduleResponse struct {
	Events []model.Game        `json:"events"`
	Error  *provider.ErrorCode `json:"error"`
}

// GetSchedule returns a team's home schedule from the provider chain.
// Upstream failures are reported in the error field with a 200 status;
// responses are cached, failures for a shorter time.
// @Summary Team home schedule
// @Description Fetches a team's home games from ESPN, falling back to Ticketmaster. Responses are cached with ETag support.
// @Tags schedule
// @Produce json
// @Param leagueId query string true "League id" Enums(nhl, nba, nfl, mlb, mls, wnba, epl)
// @Param teamId query string false "Team id or abbreviation key"
// @Param teamName query string false "Team display name"
// @Param teamAbbreviation query string false "Team abbreviation"
// @Param tz query string false "IANA time zone for display fields (default UTC)"
// @Param refresh query bool false "Drop the cached schedule and fetch again"
// @Success 200 {object} ScheduleResponse
// @Success 304 "Not Modified"
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/schedule [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ScheduleQuery{
		LeagueID:         strings.TrimSpace(q.Get("leagueId")),
		TeamID:           strings.TrimSpace(q.Get("teamId")),
		TeamName:         strings.TrimSpace(q.Get("teamName")),
		TeamAbbreviation: strings.TrimSpace(q.Get("teamAbbreviation")),
		TZ:               strings.TrimSpace(q.Get("tz")),
	}
	if err := h.validate.Struct(query); err != nil {
		respond.Invalid(w, "Invalid schedule query", err)
		return
	}

	req := provider.Request{
		LeagueID:         query.LeagueID,
		TeamID:           query.TeamID,
		TeamName:         query.TeamName,
		TeamAbbreviation: query.TeamAbbreviation,
	}
	if query.TZ != "" {
		// Already checked by the timezone validator.
		req.Location, _ = time.LoadLocation(query.TZ)
	}

	cacheKey := req.CacheKey()
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		h.cache.Delete(cacheKey)
	} else if data, etag, ok := h.cache.Get(cacheKey); ok {
		respond.Cached(w, r, data, etag, h.scheduleTTL(), true)
		return
	}

	resp, ttl := h.fetchSchedule(r, req)
	data, err := json.Marshal(resp)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode schedule")
		return
	}

	var etag string
	if ttl > 0 {
		etag = h.cache.Set(cacheKey, data, ttl)
	} else {
		etag = cache.ComputeETag(data)
	}
	respond.Cached(w, r, data, etag, ttl, false)
}

// fetchSchedule runs the provider and picks a cache TTL for the outcome.
// Timeouts are not cached.
func (h *Handler) fetchSchedule(r *http.Request, req provider.Request) (ScheduleResponse, time.Duration) {
	if h.schedule == nil {
		code := provider.CodeNoSchedule
		return ScheduleResponse{Events: []model.Game{}, Error: &code}, 0
	}

	games, err := h.schedule.FetchSchedule(r.Context(), req)
	if err != nil {
		code := provider.CodeOf(err)
		h.logger.Warn("Schedule fetch failed", "league", req.LeagueID, "team", req.TeamID, "code", code, "error", err)
		ttl := cache.TTLScheduleError
		if code == provider.CodeTimeout {
			ttl = 0
		}
		return ScheduleResponse{Events: []model.Game{}, Error: &code}, ttl
	}
	return ScheduleResponse{Events: games}, h.scheduleTTL()
}

// scheduleTTL is the configured cache lifetime for a successful fetch.
func (h *Handler) scheduleTTL() time.Duration {
	if h.cfg != nil && h.cfg.CacheTTL > 0 {
		return h.cfg.CacheTTL
	}
	return cache.TTLSchedule
}
