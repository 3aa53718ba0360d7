// Package espn fetches team home schedules from ESPN's public site API.
//
// The API is unauthenticated. Team ids are resolved from the league's team
// list, then the team schedule is fetched for each candidate season until
// one returns events. Rate limiting is handled via a token bucket limiter.
package espn

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

const (
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2"

	TeamsTimeout    = 12 * time.Second
	ScheduleTimeout = 20 * time.Second

	sourceName = "espn"
)

// Client is the ESPN schedule source.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	limiter         *rate.Limiter
	logger          *slog.Logger
	now             func() time.Time
	teamsTimeout    time.Duration
	scheduleTimeout time.Duration
}

// NewClient creates an ESPN client with rate limiting.
func NewClient(baseURL string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient:      &http.Client{},
		baseURL:         strings.TrimRight(baseURL, "/"),
		limiter:         rate.NewLimiter(rate.Limit(rps), 2),
		logger:          logger,
		now:             time.Now,
		teamsTimeout:    TeamsTimeout,
		scheduleTimeout: ScheduleTimeout,
	}
}

func (c *Client) Name() string { return sourceName }

// get performs a rate-limited GET under its own timeout and decodes the body
// into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &provider.Error{Code: provider.CodeTimeout, Source: sourceName, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u, nil)
	if err != nil {
		return provider.Errorf(sourceName, provider.CodeFetchFailed, "create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &provider.Error{Code: provider.CodeTimeout, Source: sourceName, Err: ctx.Err()}
		}
		return provider.Errorf(sourceName, provider.CodeFetchFailed, "http request %s: %w", path, err)
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

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

// FetchSchedule resolves the team and returns its home games sorted by date.
func (c *Client) FetchSchedule(ctx context.Context, req provider.Request) ([]model.Game, error) {
	league, ok := lookupLeague(req.LeagueID)
	if !ok {
		return nil, provider.Errorf(sourceName, provider.CodeInvalidLeague, "unknown league %q", req.LeagueID)
	}
	sportPath := "/sports/" + league.ESPNSport + "/" + league.ESPNLeague

	teams, err := c.fetchTeams(ctx, sportPath)
	if err != nil {
		return nil, err
	}

	team, ok := matchTeam(teams, req, league.ID == "nfl")
	if !ok {
		return nil, provider.Errorf(sourceName, provider.CodeTeamNotFound,
			"no team matches abbreviation %q or name %q among %d teams", req.TeamAbbreviation, req.TeamName, len(teams))
	}
	teamID := string(team.ID)
	abbr := team.Abbreviation
	if abbr == "" {
		abbr = req.TeamAbbreviation
	}

	c.logger.Debug("ESPN team resolved", "league", league.ID, "team_id", teamID, "abbr", abbr)

	var events []event
	for _, season := range seasonsToTry(league.ID, c.now()) {
		params := url.Values{}
		if season > 0 {
			params.Set("season", strconv.Itoa(season))
		}
		var sched scheduleResponse
		if err := c.get(ctx, sportPath+"/teams/"+teamID+"/schedule", params, c.scheduleTimeout, &sched); err != nil {
			if provider.CodeOf(err) == provider.CodeTimeout {
				return nil, err
			}
			c.logger.Debug("ESPN season fetch failed", "season", season, "error", err)
			continue
		}
		if len(sched.Events) > 0 {
			events = sched.Events
			break
		}
	}
	if len(events) == 0 {
		return nil, provider.Errorf(sourceName, provider.CodeNoSchedule, "no events for team %s in any candidate season", teamID)
	}

	return mapHomeGames(req, league.ID, teamID, abbr, events), nil
}

func (c *Client) fetchTeams(ctx context.Context, sportPath string) ([]team, error) {
	var resp teamsResponse
	if err := c.get(ctx, sportPath+"/teams", nil, c.teamsTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.teams(), nil
}

func lookupLeague(id string) (config.LeagueConfig, bool) {
	if strings.EqualFold(strings.TrimSpace(id), "usa.1") {
		id = "mls"
	}
	return config.LookupLeague(id)
}

// seasonsToTry lists season parameters to try in order. Zero means no season
// parameter, which ESPN answers with its current season.
func seasonsToTry(league string, now time.Time) []int {
	y, m := now.Year(), now.Month()
	var seasons []int
	switch league {
	case "nhl", "nba":
		// ESPN labels two-year seasons by their end year.
		if m >= time.July {
			seasons = []int{y + 1, y}
		} else {
			seasons = []int{y, y + 1}
		}
	case "nfl":
		// NFL seasons are labelled by their start year.
		if m <= time.February {
			seasons = []int{y - 1, y, y - 2}
		} else {
			seasons = []int{y, y - 1}
		}
	case "mlb":
		if m == time.December {
			seasons = []int{y + 1, y}
		} else {
			seasons = []int{y, y - 1}
		}
	default:
		seasons = []int{y, y - 1}
	}
	return append(seasons, 0)
}
