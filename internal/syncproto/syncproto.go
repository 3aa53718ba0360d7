// Package syncproto is the wire contract between the sync server and its
// clients: routes, request and response bodies, limits and error codes.
package syncproto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Routes, relative to the server base URL.
const (
	PathMeta = "/api/v1/sync/meta"
	PathPull = "/api/v1/sync/pull"
	PathPush = "/api/v1/sync/push"
)

const (
	// MaxBackupBytes is the largest backupJson, in UTF-8 bytes, the server accepts.
	MaxBackupBytes = 8 * 1024 * 1024

	MinKeyLength = 8
	MaxKeyLength = 200
)

// Error codes carried in the error envelope.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeBackupTooLarge = "BACKUP_TOO_LARGE"
	CodeInvalidBackup  = "INVALID_BACKUP"
	CodeStoreError     = "STORE_ERROR"
)

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

type KeyRequest struct {
	Key string `json:"key" validate:"required,min=8,max=200"`
}

type PushRequest struct {
	Key        string `json:"key" validate:"required,min=8,max=200"`
	BackupJSON string `json:"backupJson" validate:"required,min=2"`
}

// --------------------------------------------------------------------------
// Responses
// --------------------------------------------------------------------------

// Meta describes a stored backup without its payload.
type Meta struct {
	Exists             bool   `json:"exists"`
	ServerUpdatedAtISO string `json:"serverUpdatedAtISO,omitempty"`
	SizeBytes          int64  `json:"sizeBytes,omitempty"`
}

type Backup struct {
	ServerUpdatedAtISO string `json:"serverUpdatedAtISO"`
	BackupJSON         string `json:"backupJson"`
}

type PullResponse struct {
	Backup *Backup `json:"backup"`
}

type PushResponse struct {
	ServerUpdatedAtISO string `json:"serverUpdatedAtISO"`
}

// --------------------------------------------------------------------------
// Validation shared by client and server
// --------------------------------------------------------------------------

var (
	errNotObject       = errors.New("Not an object")
	errMissingPassList = errors.New("Missing seasonPasses[]")
)

// TooLargeMessage is the reason reported for an oversized backup.
func TooLargeMessage(size int) string {
	return fmt.Sprintf("Backup too large (%d bytes). Max allowed is %d bytes.", size, MaxBackupBytes)
}

// ValidateBackupJSON checks the minimal structure the server requires: a
// JSON object with a seasonPasses array.
func ValidateBackupJSON(backupJSON string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(backupJSON), &obj); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("Invalid backup JSON: %w", err)
		}
		return fmt.Errorf("Invalid backup JSON: %w", errNotObject)
	}
	if obj == nil {
		return fmt.Errorf("Invalid backup JSON: %w", errNotObject)
	}
	passes, ok := obj["seasonPasses"]
	if !ok {
		return fmt.Errorf("Invalid backup JSON: %w", errMissingPassList)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(passes, &list); err != nil || list == nil {
		return fmt.Errorf("Invalid backup JSON: %w", errMissingPassList)
	}
	return nil
}
