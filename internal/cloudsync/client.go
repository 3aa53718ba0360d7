package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

const (
	DefaultMetaTimeout     = 15 * time.Second
	DefaultTransferTimeout = 20 * time.Second
)

// ErrNetwork wraps transport failures and timeouts. The request may or may
// not have reached the server.
var ErrNetwork = errors.New("sync server unreachable")

// RemoteError is a structured error returned by the sync server.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sync server: %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("sync server: %s: %s", e.Code, e.Message)
}

// Remote is the sync RPC surface the engine talks to.
type Remote interface {
	GetMeta(ctx context.Context, key string) (syncproto.Meta, error)
	GetBackup(ctx context.Context, key string) (*syncproto.Backup, error)
	PutBackup(ctx context.Context, key, backupJSON string) (syncproto.PushResponse, error)
}

// Client calls the sync RPC over HTTP. Each call runs under its own
// timeout on top of the caller's context.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	metaTimeout     time.Duration
	transferTimeout time.Duration
	logger          *slog.Logger
}

// NewClient creates a sync client. Zero timeouts take the defaults.
func NewClient(baseURL string, metaTimeout, transferTimeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if metaTimeout <= 0 {
		metaTimeout = DefaultMetaTimeout
	}
	if transferTimeout <= 0 {
		transferTimeout = DefaultTransferTimeout
	}
	return &Client{
		httpClient:      &http.Client{},
		baseURL:         strings.TrimRight(baseURL, "/"),
		metaTimeout:     metaTimeout,
		transferTimeout: transferTimeout,
		logger:          logger,
	}
}

func (c *Client) GetMeta(ctx context.Context, key string) (syncproto.Meta, error) {
	var meta syncproto.Meta
	err := c.call(ctx, syncproto.PathMeta, c.metaTimeout, syncproto.KeyRequest{Key: key}, &meta)
	return meta, err
}

// GetBackup returns nil when the server holds nothing for key.
func (c *Client) GetBackup(ctx context.Context, key string) (*syncproto.Backup, error) {
	var resp syncproto.PullResponse
	if err := c.call(ctx, syncproto.PathPull, c.transferTimeout, syncproto.KeyRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return resp.Backup, nil
}

func (c *Client) PutBackup(ctx context.Context, key, backupJSON string) (syncproto.PushResponse, error) {
	var resp syncproto.PushResponse
	err := c.call(ctx, syncproto.PathPush, c.transferTimeout, syncproto.PushRequest{Key: key, BackupJSON: backupJSON}, &resp)
	return resp, err
}

// call posts body as JSON and decodes a 200 response into out.
func (c *Client) call(ctx context.Context, path string, timeout time.Duration, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Sync call", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return decodeRemoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", ErrNetwork, path, err)
		}
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	rerr := &RemoteError{Status: resp.StatusCode, Code: "HTTP_ERROR"}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
		rerr.Code = envelope.Error.Code
		rerr.Message = envelope.Error.Message
	}
	return rerr
}
