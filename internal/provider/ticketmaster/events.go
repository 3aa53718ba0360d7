package ticketmaster

import (
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
)

type image struct {
	URL string `json:"url"`
}

type attraction struct {
	Name   string  `json:"name"`
	Images []image `json:"images"`
}

type venue struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

type event struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	Embedded struct {
		Venues      []venue      `json:"venues"`
		Attractions []attraction `json:"attractions"`
	} `json:"_embedded"`
}

type eventsResponse struct {
	Embedded struct {
		Events []event `json:"events"`
	} `json:"_embedded"`
}

func (e event) venue() venue {
	if len(e.Embedded.Venues) > 0 {
		return e.Embedded.Venues[0]
	}
	return venue{}
}

func (e event) start() (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, e.Dates.Start.DateTime); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, e.Dates.Start.LocalDate); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// isHome applies, in order: venue match, city match, "<team> vs" naming, and
// "<away> at <team>" naming.
func isHome(ev event, info venueInfo) bool {
	v := ev.venue()
	if home := provider.Normalize(info.Venue); home != "" {
		want := prefix(home, 8)
		got := provider.Normalize(v.Name)
		if got != "" && (strings.Contains(got, want) || strings.Contains(want, prefix(got, 8))) {
			return true
		}
	}

	if info.City != "" && v.City.Name != "" {
		want, got := lettersOnly(info.City), lettersOnly(v.City.Name)
		if want != "" && got != "" && (strings.Contains(got, want) || strings.Contains(want, got)) {
			return true
		}
	}

	name := strings.ToLower(ev.Name)
	first := firstWord(info.Team)
	if first == "" {
		return false
	}
	if strings.Contains(name, first+" vs") || strings.HasPrefix(name, first) {
		return true
	}
	if parts := strings.Split(name, " at "); len(parts) == 2 && strings.Contains(parts[1], first) {
		return true
	}
	return false
}

func mapHomeGames(req provider.Request, league string, info venueInfo, events []event) []model.Game {
	first := firstWord(info.Team)
	games := make([]model.Game, 0, len(events))
	for _, ev := range events {
		if !isHome(ev, info) {
			continue
		}
		start, ok := ev.start()
		if !ok {
			continue
		}

		g := provider.NewGame(req, "tm_"+league+"_"+req.TeamID+"_"+ev.ID, start)

		var opp *attraction
		for i := range ev.Embedded.Attractions {
			if !strings.Contains(strings.ToLower(ev.Embedded.Attractions[i].Name), first) {
				opp = &ev.Embedded.Attractions[i]
				break
			}
		}
		if opp != nil && opp.Name != "" {
			g.Opponent = opp.Name
			if len(opp.Images) > 0 {
				g.OpponentLogo = opp.Images[0].URL
			}
		} else {
			g.Opponent = opponentFromName(ev.Name, info.Team)
		}

		g.VenueName = ev.venue().Name
		g.Type = provider.ClassifyGameType(0, ev.Name)
		games = append(games, g)
	}
	return provider.Finalize(games)
}

func opponentFromName(name, team string) string {
	s := strings.ReplaceAll(name, team, "")
	s = strings.ReplaceAll(s, " vs ", "")
	s = strings.ReplaceAll(s, " at ", "")
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "vs"))
	if s == "" {
		return "TBD"
	}
	return s
}

func firstWord(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
