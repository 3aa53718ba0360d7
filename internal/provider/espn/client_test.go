package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

const teamsFixture = `{
  "sports": [{"leagues": [{"teams": [
    {"team": {"id": "26", "abbreviation": "FLA", "displayName": "Florida Panthers", "shortDisplayName": "Panthers", "name": "Panthers", "location": "Florida"}},
    {"team": {"id": 1, "abbreviation": "BOS", "displayName": "Boston Bruins", "shortDisplayName": "Bruins", "name": "Bruins", "location": "Boston"}}
  ]}]}]
}`

const scheduleFixture = `{
  "events": [
    {
      "id": "401",
      "date": "2025-10-12T23:00Z",
      "name": "Boston Bruins at Florida Panthers",
      "seasonType": {"type": 2},
      "competitions": [{
        "venue": {"fullName": "Amerant Bank Arena"},
        "competitors": [
          {"homeAway": "home", "team": {"id": "26", "abbreviation": "FLA"}},
          {"homeAway": "away", "team": {"id": "1", "abbreviation": "BOS", "displayName": "Boston Bruins"}}
        ]
      }]
    },
    {
      "id": "400",
      "date": "2025-10-09T23:00Z",
      "name": "Preseason: Tampa Bay at Florida",
      "seasonType": {"type": 1},
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "team": {"id": "26", "abbreviation": "FLA"}},
          {"homeAway": "away", "team": {"id": "20", "abbreviation": "TB", "displayName": "Tampa Bay Lightning", "logos": [{"href": "https://logo/tb.png"}]}}
        ]
      }]
    },
    {
      "id": "402",
      "date": "2025-10-15T23:00Z",
      "name": "Florida Panthers at Boston Bruins",
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "team": {"id": "1", "abbreviation": "BOS"}},
          {"homeAway": "away", "team": {"id": "26", "abbreviation": "FLA"}}
        ]
      }]
    }
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 6000, nil)
	c.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchScheduleHomeGamesOnly(t *testing.T) {
	var seasons []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sports/hockey/nhl/teams":
			w.Write([]byte(teamsFixture))
		case "/sports/hockey/nhl/teams/26/schedule":
			seasons = append(seasons, r.URL.Query().Get("season"))
			w.Write([]byte(scheduleFixture))
		default:
			http.NotFound(w, r)
		}
	})

	games, err := c.FetchSchedule(context.Background(), provider.Request{
		LeagueID: "nhl", TeamID: "fla", TeamName: "Florida Panthers", TeamAbbreviation: "FLA",
	})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, []string{"2026"}, seasons)

	assert.Equal(t, "espn_nhl_26_400", games[0].ID)
	assert.Equal(t, model.GamePreseason, games[0].Type)
	assert.Equal(t, "Tampa Bay Lightning", games[0].Opponent)
	assert.Equal(t, "https://logo/tb.png", games[0].OpponentLogo)
	assert.Equal(t, model.GameNumber("1"), games[0].GameNumber)

	assert.Equal(t, "espn_nhl_26_401", games[1].ID)
	assert.Equal(t, model.GameRegular, games[1].Type)
	assert.Equal(t, "Boston Bruins", games[1].Opponent)
	assert.Equal(t, "https://a.espncdn.com/i/teamlogos/nhl/500/bos.png", games[1].OpponentLogo)
	assert.Equal(t, "Amerant Bank Arena", games[1].VenueName)
	assert.Equal(t, "2025-10-12T23:00:00.000Z", games[1].DateTimeISO)
}

func TestFetchScheduleFallsBackThroughSeasons(t *testing.T) {
	var seasons []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sports/hockey/nhl/teams":
			w.Write([]byte(teamsFixture))
		default:
			seasons = append(seasons, r.URL.Query().Get("season"))
			if r.URL.Query().Get("season") == "" {
				w.Write([]byte(scheduleFixture))
				return
			}
			w.Write([]byte(`{"events": []}`))
		}
	})

	games, err := c.FetchSchedule(context.Background(), provider.Request{LeagueID: "nhl", TeamName: "Florida Panthers"})
	require.NoError(t, err)
	assert.Len(t, games, 2)
	assert.Equal(t, []string{"2026", "2025", ""}, seasons)
}

func TestFetchScheduleErrors(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sports/hockey/nhl/teams":
			w.Write([]byte(teamsFixture))
		case "/sports/basketball/nba/teams":
			http.Error(w, "down", http.StatusBadGateway)
		case "/sports/football/nfl/teams":
			w.Write([]byte(`not json`))
		default:
			w.Write([]byte(`{"events": []}`))
		}
	})
	ctx := context.Background()

	_, err := c.FetchSchedule(ctx, provider.Request{LeagueID: "xfl"})
	assert.Equal(t, provider.CodeInvalidLeague, provider.CodeOf(err))

	_, err = c.FetchSchedule(ctx, provider.Request{LeagueID: "nba", TeamName: "Heat"})
	assert.Equal(t, provider.CodeHTTPError, provider.CodeOf(err))

	_, err = c.FetchSchedule(ctx, provider.Request{LeagueID: "nfl", TeamName: "Dolphins"})
	assert.Equal(t, provider.CodeParseError, provider.CodeOf(err))

	_, err = c.FetchSchedule(ctx, provider.Request{LeagueID: "nhl", TeamName: "Quebec Nordiques", TeamAbbreviation: "QUE"})
	assert.Equal(t, provider.CodeTeamNotFound, provider.CodeOf(err))

	_, err = c.FetchSchedule(ctx, provider.Request{LeagueID: "nhl", TeamAbbreviation: "FLA"})
	assert.Equal(t, provider.CodeNoSchedule, provider.CodeOf(err))
}

func TestMatchTeamStrategies(t *testing.T) {
	teams := []team{
		{ID: "1", Abbreviation: "BOS", DisplayName: "Boston Bruins", Name: "Bruins", Location: "Boston"},
		{ID: "33", Abbreviation: "BAL", DisplayName: "Baltimore Ravens", Name: "Ravens", Location: "Baltimore"},
	}

	tests := []struct {
		name string
		req  provider.Request
		nfl  bool
		want flexID
	}{
		{"by id", provider.Request{TeamID: "33"}, false, "33"},
		{"by abbreviation", provider.Request{TeamAbbreviation: "bos"}, false, "1"},
		{"by display name", provider.Request{TeamName: "Baltimore Ravens"}, false, "33"},
		{"by nickname", provider.Request{TeamName: "Bruins"}, false, "1"},
		{"by name word", provider.Request{TeamName: "The Ravens Club"}, false, "33"},
		{"by name word city", provider.Request{TeamName: "Boston Hockey"}, false, "1"},
		{"nfl nickname", provider.Request{TeamName: "B. Ravens"}, true, "33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchTeam(teams, tt.req, tt.nfl)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	_, ok := matchTeam(teams, provider.Request{TeamName: "Xx"}, false)
	assert.False(t, ok)
}

func TestSeasonsToTry(t *testing.T) {
	at := func(y int, m time.Month) time.Time { return time.Date(y, m, 15, 0, 0, 0, 0, time.UTC) }

	assert.Equal(t, []int{2026, 2025, 0}, seasonsToTry("nhl", at(2025, time.October)))
	assert.Equal(t, []int{2026, 2027, 0}, seasonsToTry("nba", at(2026, time.March)))
	assert.Equal(t, []int{2024, 2025, 2023, 0}, seasonsToTry("nfl", at(2025, time.January)))
	assert.Equal(t, []int{2025, 2024, 0}, seasonsToTry("nfl", at(2025, time.September)))
	assert.Equal(t, []int{2026, 2025, 0}, seasonsToTry("mlb", at(2025, time.December)))
	assert.Equal(t, []int{2025, 2024, 0}, seasonsToTry("mls", at(2025, time.May)))
}

func TestLookupLeagueAlias(t *testing.T) {
	lc, ok := lookupLeague("usa.1")
	require.True(t, ok)
	assert.Equal(t, "mls", lc.ID)
}
