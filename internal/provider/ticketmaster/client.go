// Package ticketmaster fetches team home schedules from the Ticketmaster
// Discovery API. It is the fallback source behind ESPN and needs an API key.
package ticketmaster

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

const (
	DefaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

	// SportsSegmentID is Ticketmaster's "Sports" classification segment.
	SportsSegmentID = "KZFzniwnSyZfZ7v7nE"

	FetchTimeout = 20 * time.Second

	sourceName = "ticketmaster"
)

// Client is the Ticketmaster schedule source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
	timeout    time.Duration
}

// NewClient creates a Ticketmaster client with rate limiting. An empty apiKey
// is allowed; every fetch then fails with API_KEY_MISSING.
func NewClient(baseURL, apiKey string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		now:        time.Now,
		timeout:    FetchTimeout,
	}
}

func (c *Client) Name() string { return sourceName }

// --------------------------------------------------------------------------
// Team venues
// --------------------------------------------------------------------------

// venueInfo is the search keyword and home venue for a team id.
type venueInfo struct {
	Team  string `json:"team"`
	Venue string `json:"venue"`
	City  string `json:"city"`
}

//go:embed venues.json
var venuesJSON []byte

var teamVenues = sync.OnceValue(func() map[string]venueInfo {
	m := make(map[string]venueInfo)
	if err := json.Unmarshal(venuesJSON, &m); err != nil {
		panic(fmt.Sprintf("ticketmaster: embedded venues.json: %v", err))
	}
	return m
})

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

// FetchSchedule searches the team's events for the current season window and
// keeps those that look like home games.
func (c *Client) FetchSchedule(ctx context.Context, req provider.Request) ([]model.Game, error) {
	if c.apiKey == "" {
		return nil, &provider.Error{Code: provider.CodeAPIKeyMissing, Source: sourceName}
	}

	league := strings.ToLower(strings.TrimSpace(req.LeagueID))
	info, known := teamVenues()[strings.ToLower(req.TeamID)]
	if !known {
		c.logger.Debug("No venue entry for team, searching by name", "team_id", req.TeamID, "team_name", req.TeamName)
		info = venueInfo{Team: req.TeamName}
	}
	if strings.TrimSpace(info.Team) == "" {
		return nil, provider.Errorf(sourceName, provider.CodeTeamNotFound, "no team name for %q", req.TeamID)
	}

	start, end := seasonWindow(league, c.now())
	params := url.Values{
		"apikey":        {c.apiKey},
		"keyword":       {info.Team},
		"size":          {"200"},
		"sort":          {"date,asc"},
		"startDateTime": {start},
		"endDateTime":   {end},
	}
	if lc, ok := config.LookupLeague(league); ok && lc.TMGenreID != "" {
		params.Set("segmentId", SportsSegmentID)
		params.Set("genreId", lc.TMGenreID)
	}
	if info.City != "" {
		params.Set("city", info.City)
	}

	var resp eventsResponse
	if err := c.get(ctx, "/events.json", params, &resp); err != nil {
		return nil, err
	}

	games := mapHomeGames(req, league, info, resp.Embedded.Events)
	c.logger.Debug("Ticketmaster events mapped",
		"raw", len(resp.Embedded.Events), "home", len(games), "team", info.Team)
	return games, nil
}

// get performs a rate-limited GET under the client timeout.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &provider.Error{Code: provider.CodeTimeout, Source: sourceName, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return provider.Errorf(sourceName, provider.CodeFetchFailed, "create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &provider.Error{Code: provider.CodeTimeout, Source: sourceName, Err: ctx.Err()}
		}
		// The URL carries the API key; keep it out of the error.
		return provider.Errorf(sourceName, provider.CodeFetchFailed, "http request %s: %v", path, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Errorf(sourceName, provider.CodeFetchFailed, "read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return provider.Errorf(sourceName, provider.CodeHTTPError,
			"%s returned %d: %s", path, resp.StatusCode, provider.Truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return provider.Errorf(sourceName, provider.CodeParseError, "decode response: %w", err)
	}
	return nil
}

func redact(err error, secret string) string {
	return strings.ReplaceAll(err.Error(), secret, "***")
}

// seasonWindow returns the search window for the league's current or next
// season in Ticketmaster's UTC timestamp format.
func seasonWindow(league string, now time.Time) (string, string) {
	y, m := now.Year(), now.Month()
	span := func(startYear int, startMD string, endYear int, endMD string) (string, string) {
		return fmt.Sprintf("%d-%sT00:00:00Z", startYear, startMD), fmt.Sprintf("%d-%sT23:59:59Z", endYear, endMD)
	}

	switch league {
	case "nhl", "nba":
		if m >= time.July {
			return span(y, "09-01", y+1, "06-30")
		}
		return span(y-1, "09-01", y, "06-30")
	case "nfl":
		if m <= time.February {
			return span(y-1, "08-01", y, "02-28")
		}
		return span(y, "08-01", y+1, "02-28")
	case "mlb":
		if m == time.December {
			return span(y+1, "02-01", y+1, "11-30")
		}
		return span(y, "02-01", y, "11-30")
	case "mls":
		return span(y, "02-01", y, "12-31")
	}

	const layout = "2006-01-02T15:04:05Z"
	now = now.UTC()
	return now.AddDate(0, 0, -30).Format(layout), now.AddDate(0, 0, 365).Format(layout)
}
