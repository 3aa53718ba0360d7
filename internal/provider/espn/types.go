package espn

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

// espnPlayoffKeywords extend provider.PlayoffKeywords with round names ESPN
// uses in event titles.
var espnPlayoffKeywords = []string{"wild card", "divisional", "conference", "championship"}

// --------------------------------------------------------------------------
// Wire types
// --------------------------------------------------------------------------

// flexID accepts ids sent as either JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

type team struct {
	ID               flexID `json:"id"`
	Abbreviation     string `json:"abbreviation"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Name             string `json:"name"`
	Location         string `json:"location"`
	Logo             string `json:"logo"`
	Logos            []struct {
		Href string `json:"href"`
	} `json:"logos"`
}

type teamEntry struct {
	Team *team `json:"team"`
}

// teamsResponse covers both shapes ESPN returns for a league's team list.
type teamsResponse struct {
	Sports []struct {
		Leagues []struct {
			Teams []teamEntry `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
	Teams []teamEntry `json:"teams"`
}

func (r teamsResponse) teams() []team {
	entries := r.Teams
	if len(r.Sports) > 0 && len(r.Sports[0].Leagues) > 0 && len(r.Sports[0].Leagues[0].Teams) > 0 {
		entries = r.Sports[0].Leagues[0].Teams
	}
	out := make([]team, 0, len(entries))
	for _, e := range entries {
		if e.Team != nil {
			out = append(out, *e.Team)
		}
	}
	return out
}

type seasonType struct {
	Type int `json:"type"`
}

type venue struct {
	FullName string `json:"fullName"`
	Name     string `json:"name"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Team     team   `json:"team"`
}

type competition struct {
	Venue       *venue       `json:"venue"`
	SeasonType  *seasonType  `json:"seasonType"`
	Competitors []competitor `json:"competitors"`
}

type event struct {
	ID           flexID        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	SeasonType   *seasonType   `json:"seasonType"`
	Season       *seasonType   `json:"season"`
	Venue        *venue        `json:"venue"`
	Competitions []competition `json:"competitions"`
}

type scheduleResponse struct {
	Events []event `json:"events"`
}

// --------------------------------------------------------------------------
// Team resolution
// --------------------------------------------------------------------------

// matchTeam tries progressively looser strategies: exact id, abbreviation,
// names, substring, name words, city, and for the NFL the nickname alone.
func matchTeam(teams []team, req provider.Request, nfl bool) (team, bool) {
	wantID := strings.TrimSpace(req.TeamID)
	wantAbbr := provider.Normalize(req.TeamAbbreviation)
	wantName := provider.Normalize(req.TeamName)

	var words []string
	for _, w := range strings.Fields(strings.ToLower(req.TeamName)) {
		if n := provider.Normalize(w); len(n) > 2 {
			words = append(words, n)
		}
	}

	strategies := []func(t team) bool{
		func(t team) bool { return wantID != "" && string(t.ID) == wantID },
		func(t team) bool { return wantAbbr != "" && provider.Normalize(t.Abbreviation) == wantAbbr },
		func(t team) bool { return wantName != "" && provider.Normalize(t.DisplayName) == wantName },
		func(t team) bool { return wantName != "" && provider.Normalize(t.ShortDisplayName) == wantName },
		func(t team) bool { return wantName != "" && provider.Normalize(t.Name) == wantName },
		func(t team) bool {
			return wantName != "" && strings.Contains(provider.Normalize(t.DisplayName), wantName)
		},
		func(t team) bool {
			n := provider.Normalize(t.Name)
			return n != "" && strings.Contains(wantName, n)
		},
		func(t team) bool {
			name := provider.Normalize(firstNonEmpty(t.DisplayName, t.Name))
			for _, w := range words {
				if strings.Contains(name, w) {
					return true
				}
			}
			return false
		},
		func(t team) bool {
			city := provider.Normalize(t.Location)
			if city == "" || len(words) == 0 {
				return false
			}
			return strings.Contains(city, words[0]) || strings.Contains(words[0], city)
		},
	}
	if nfl && len(words) > 0 {
		nickname := words[len(words)-1]
		strategies = append(strategies, func(t team) bool {
			return strings.Contains(strings.ToLower(firstNonEmpty(t.DisplayName, t.Name)), nickname)
		})
	}

	for _, match := range strategies {
		for _, t := range teams {
			if t.ID != "" && match(t) {
				return t, true
			}
		}
	}
	return team{}, false
}

// --------------------------------------------------------------------------
// Event mapping
// --------------------------------------------------------------------------

// mapHomeGames keeps the events where the team is home and maps them to
// games, sorted and numbered.
func mapHomeGames(req provider.Request, league, teamID, abbr string, events []event) []model.Game {
	wantAbbr := provider.Normalize(abbr)
	isUs := func(c competitor) bool {
		return string(c.Team.ID) == teamID || (wantAbbr != "" && provider.Normalize(c.Team.Abbreviation) == wantAbbr)
	}

	games := make([]model.Game, 0, len(events))
	for i, ev := range events {
		start, ok := parseDate(ev.Date)
		if !ok {
			continue
		}

		var comp competition
		if len(ev.Competitions) > 0 {
			comp = ev.Competitions[0]
			home := false
			for _, c := range comp.Competitors {
				if isUs(c) {
					home = c.HomeAway == "home"
					break
				}
			}
			if !home {
				continue
			}
		}

		evID := string(ev.ID)
		if evID == "" {
			evID = strconv.Itoa(i)
		}
		g := provider.NewGame(req, "espn_"+league+"_"+teamID+"_"+evID, start)

		var opp *team
		for j := range comp.Competitors {
			if !isUs(comp.Competitors[j]) {
				opp = &comp.Competitors[j].Team
				break
			}
		}
		g.Opponent = "TBD"
		if opp != nil {
			g.Opponent = firstNonEmpty(opp.DisplayName, opp.ShortDisplayName, opp.Name, ev.Name, "TBD")
			g.OpponentLogo = opponentLogo(league, *opp)
		} else if ev.Name != "" {
			g.Opponent = ev.Name
		}

		v := comp.Venue
		if v == nil {
			v = ev.Venue
		}
		if v != nil {
			g.VenueName = firstNonEmpty(v.FullName, v.Name)
		}

		g.Type = provider.ClassifyGameType(eventSeasonType(ev, comp), firstNonEmpty(ev.Name, ev.ShortName), espnPlayoffKeywords...)
		games = append(games, g)
	}
	return provider.Finalize(games)
}

func eventSeasonType(ev event, comp competition) int {
	for _, st := range []*seasonType{ev.SeasonType, ev.Season, comp.SeasonType} {
		if st != nil && st.Type != 0 {
			return st.Type
		}
	}
	return 0
}

func opponentLogo(league string, t team) string {
	if t.Logo != "" {
		return t.Logo
	}
	if len(t.Logos) > 0 && t.Logos[0].Href != "" {
		return t.Logos[0].Href
	}
	if t.Abbreviation != "" {
		return LogoURL(league, t.Abbreviation)
	}
	return ""
}

// LogoURL is ESPN's CDN logo for a team abbreviation.
func LogoURL(league, abbr string) string {
	path := strings.ToLower(league)
	if path == "mls" {
		path = "soccer"
	}
	return "https://a.espncdn.com/i/teamlogos/" + path + "/500/" + strings.ToLower(abbr) + ".png"
}

// ESPN usually omits seconds.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04Z07:00"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
