package backup

import (
	_ "embed"
	"encoding/json"
	"slices"
	"sync"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

//go:embed reference/panthers_2025_2026.json
var referenceScheduleJSON []byte

var referenceSchedule = sync.OnceValue(func() []model.Game {
	var games []model.Game
	if err := json.Unmarshal(referenceScheduleJSON, &games); err != nil {
		panic("backup: embedded reference schedule is invalid: " + err.Error())
	}
	return games
})

// ReferenceSchedule returns a fresh copy of the home schedule bundled for
// the legacy pass. Callers may modify the result.
func ReferenceSchedule() []model.Game {
	return slices.Clone(referenceSchedule())
}
