// Package backup defines the full-snapshot backup envelope and the recovery
// code format used to move it between devices.
package backup

import (
	"encoding/json"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

// Version is written into every backup this build produces.
const Version = "1.0"

// Data is a complete snapshot of the user's season passes. It is built fresh
// for every backup and restored wholesale.
type Data struct {
	Version            string             `json:"version"`
	CreatedAtISO       string             `json:"createdAtISO"`
	ActiveSeasonPassID string             `json:"activeSeasonPassId"`
	SeasonPasses       []model.SeasonPass `json:"seasonPasses"`
	DataImportedRaw    string             `json:"dataImportedRaw,omitempty"`
	AppTheme           map[string]string  `json:"appTheme,omitempty"`
}

// New builds an envelope around a deep copy of passes.
func New(passes []model.SeasonPass, activeID, dataImportedRaw string, now time.Time) *Data {
	cloned := model.ClonePasses(passes)
	if cloned == nil {
		cloned = []model.SeasonPass{}
	}
	return &Data{
		Version:            Version,
		CreatedAtISO:       model.FormatISO(now),
		ActiveSeasonPassID: activeID,
		SeasonPasses:       cloned,
		DataImportedRaw:    dataImportedRaw,
	}
}

// ActivePass returns the pass named by ActiveSeasonPassID, falling back to
// the first pass.
func (d *Data) ActivePass() *model.SeasonPass {
	if len(d.SeasonPasses) == 0 {
		return nil
	}
	if i := model.FindPass(d.SeasonPasses, d.ActiveSeasonPassID); i >= 0 {
		return &d.SeasonPasses[i]
	}
	return &d.SeasonPasses[0]
}

// MarshalJSON writes an empty ActiveSeasonPassID as null.
func (d Data) MarshalJSON() ([]byte, error) {
	type plain Data
	var active *string
	if d.ActiveSeasonPassID != "" {
		active = &d.ActiveSeasonPassID
	}
	return json.Marshal(struct {
		plain
		ActiveSeasonPassID *string `json:"activeSeasonPassId"`
	}{plain(d), active})
}

// JSON is the canonical serialization used for sync and recovery codes.
func (d *Data) JSON() ([]byte, error) {
	return json.Marshal(d)
}
