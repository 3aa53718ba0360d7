package cloudsync

import (
	"context"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/backup"
)

// ExportCode encodes the current model as a recovery code.
func (e *Engine) ExportCode() (string, error) {
	code, err := backup.Encode(e.model.Backup())
	if err != nil {
		return "", e.fail(DirectionExport, err)
	}
	e.setStatus(DirectionExport, true, "Recovery code created")
	return code, nil
}

// ImportCode restores from a recovery code or pasted backup JSON, in the
// current or a legacy shape. An invalid code leaves local data untouched.
func (e *Engine) ImportCode(ctx context.Context, code string) (*backup.Data, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	d, err := backup.Decode(code)
	if err != nil {
		return nil, e.fail(DirectionRestore, err)
	}
	if err := e.model.Replace(ctx, d); err != nil {
		return nil, e.fail(DirectionRestore, err)
	}
	e.setStatus(DirectionRestore, true, "Restored from recovery code")
	e.logger.Info("Restored from recovery code", "passes", len(d.SeasonPasses))
	return d, nil
}
