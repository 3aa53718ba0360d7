package provider

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

// PlayoffKeywords mark an event name as postseason.
var PlayoffKeywords = []string{
	"playoff", "postseason", "stanley cup", "nba finals", "world series", "super bowl",
}

var preseasonKeywords = []string{"preseason", "pre-season"}

// NewGame builds a game starting at start with display fields rendered in the
// request's location.
func NewGame(req Request, id string, start time.Time) model.Game {
	local := start.In(req.location())
	return model.Game{
		ID:           id,
		Date:         local.Format("Jan 2"),
		Month:        local.Format("Jan"),
		Day:          strconv.Itoa(local.Day()),
		Time:         local.Format("3:04 PM"),
		TicketStatus: "Available",
		Type:         model.GameRegular,
		DateTimeISO:  model.FormatISO(start),
	}
}

// Finalize sorts games by start time and numbers them from 1.
func Finalize(games []model.Game) []model.Game {
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].DateTimeISO < games[j].DateTimeISO
	})
	for i := range games {
		games[i].GameNumber = model.GameNumber(strconv.Itoa(i + 1))
	}
	return games
}

// ClassifyGameType decides the game type from an upstream season type
// (1 preseason, 3 postseason, 0 unknown) and the event name. extra adds
// source-specific playoff keywords.
func ClassifyGameType(seasonType int, name string, extra ...string) model.GameType {
	lower := strings.ToLower(name)
	if seasonType == 1 || containsAny(lower, preseasonKeywords) || strings.Contains(lower, "exhibition") {
		return model.GamePreseason
	}
	if seasonType == 3 || containsAny(lower, PlayoffKeywords) || containsAny(lower, extra) {
		return model.GamePlayoff
	}
	return model.GameRegular
}

// Normalize lowercases s and drops everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate returns a shortened string for error messages.
func Truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
