package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api/respond"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncstore"
)

// maxBodyBytes bounds a sync request body. backupJson travels as an escaped
// JSON string, so the envelope can be several times the backup itself; the
// exact backup limit is enforced after decoding.
const maxBodyBytes = 4*syncproto.MaxBackupBytes + 4096

// GetSyncMeta reports whether a backup exists for a key.
// @Summary Sync metadata
// @Description Returns existence, server timestamp and size of the backup stored for a key. Never returns the payload.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body syncproto.KeyRequest true "Access key"
// @Success 200 {object} syncproto.Meta
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/sync/meta [post]
func (h *Handler) GetSyncMeta(w http.ResponseWriter, r *http.Request) {
	var req syncproto.KeyRequest
	if !h.decode(w, r, &req) {
		return
	}

	meta, err := h.store.GetMeta(r.Context(), syncstore.HashKey(req.Key))
	if err != nil {
		h.storeError(w, "meta", err)
		return
	}
	respond.Private(w, http.StatusOK, meta)
}

// PullBackup returns the stored backup for a key.
// @Summary Pull backup
// @Description Returns the full stored backup for a key, or a null backup when none exists.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body syncproto.KeyRequest true "Access key"
// @Success 200 {object} syncproto.PullResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/sync/pull [post]
func (h *Handler) PullBackup(w http.ResponseWriter, r *http.Request) {
	var req syncproto.KeyRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, ok, err := h.store.GetBackup(r.Context(), syncstore.HashKey(req.Key))
	if err != nil {
		h.storeError(w, "pull", err)
		return
	}
	var resp syncproto.PullResponse
	if ok {
		resp.Backup = &b
	}
	respond.Private(w, http.StatusOK, resp)
}

// PushBackup stores a backup for a key, replacing any previous one.
// @Summary Push backup
// @Description Stores a full backup for a key. The server stamps the update time; last write wins.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body syncproto.PushRequest true "Access key and serialized backup"
// @Success 200 {object} syncproto.PushResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 413 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/sync/push [post]
func (h *Handler) PushBackup(w http.ResponseWriter, r *http.Request) {
	var req syncproto.PushRequest
	if !h.decode(w, r, &req) {
		return
	}

	size := len(req.BackupJSON)
	if size > syncproto.MaxBackupBytes {
		respond.Error(w, http.StatusRequestEntityTooLarge, syncproto.CodeBackupTooLarge, syncproto.TooLargeMessage(size))
		return
	}
	if err := syncproto.ValidateBackupJSON(req.BackupJSON); err != nil {
		respond.Error(w, http.StatusBadRequest, syncproto.CodeInvalidBackup, err.Error())
		return
	}

	rec := syncstore.Record{
		ID:                 syncstore.HashKey(req.Key),
		ServerUpdatedAtISO: model.FormatISO(h.now()),
		BackupJSON:         req.BackupJSON,
		SizeBytes:          int64(size),
	}
	if err := h.store.PutBackup(r.Context(), rec); err != nil {
		h.storeError(w, "push", err)
		return
	}

	h.logger.Info("Backup stored", "id", rec.ID[:12], "size_bytes", size)
	respond.Private(w, http.StatusOK, syncproto.PushResponse{ServerUpdatedAtISO: rec.ServerUpdatedAtISO})
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// decode reads and validates a JSON body into dst. On failure it writes the
// error response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusRequestEntityTooLarge, syncproto.CodeBackupTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", tooBig.Limit))
			return false
		}
		respond.Invalid(w, "Malformed JSON body", err)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		respond.Invalid(w, "Invalid request", err)
		return false
	}
	return true
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("Sync store operation failed", "op", op, "error", err)
	respond.Error(w, http.StatusInternalServerError, syncproto.CodeStoreError, "Sync store unavailable")
}
