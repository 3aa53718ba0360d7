package cloudsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/passes"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncstore"
)

func newSyncServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := syncstore.OpenFileStore(filepath.Join(t.TempDir(), "sync-store.json"), nil)
	require.NoError(t, err)
	c := cache.New(false)
	cfg := &config.Config{SyncStoreDriver: config.DriverJSON, CORSAllowOrigins: []string{"*"}}

	srv := httptest.NewServer(api.NewRouter(store, c, nil, cfg, nil))
	t.Cleanup(func() {
		srv.Close()
		c.Close()
		store.Close()
	})
	return srv
}

type device struct {
	engine  *Engine
	manager *passes.Manager
	store   *storage.Store
}

func newDevice(t *testing.T, serverURL, key string) *device {
	t.Helper()
	kv, err := storage.OpenFileKV(t.TempDir())
	require.NoError(t, err)
	store := storage.NewStore(kv, nil)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SetSyncKey(context.Background(), key))

	m := passes.NewManager(store, nil)
	client := NewClient(serverURL, 0, 0, nil)
	return &device{engine: NewEngine(client, m, store, Options{}, nil), manager: m, store: store}
}

func TestClientRoundTrip(t *testing.T) {
	srv := newSyncServer(t)
	c := NewClient(srv.URL+"/", time.Second, time.Second, nil)
	ctx := context.Background()

	meta, err := c.GetMeta(ctx, "round-trip-key")
	require.NoError(t, err)
	assert.False(t, meta.Exists)

	b, err := c.GetBackup(ctx, "round-trip-key")
	require.NoError(t, err)
	assert.Nil(t, b)

	resp, err := c.PutBackup(ctx, "round-trip-key", `{"version":"1.0","seasonPasses":[]}`)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ServerUpdatedAtISO)

	b, err = c.GetBackup(ctx, "round-trip-key")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, resp.ServerUpdatedAtISO, b.ServerUpdatedAtISO)
}

func TestClientRemoteErrors(t *testing.T) {
	srv := newSyncServer(t)
	c := NewClient(srv.URL, 0, 0, nil)
	ctx := context.Background()

	_, err := c.PutBackup(ctx, "remote-error-key", `{"version":"1.0"}`)
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, syncproto.CodeInvalidBackup, rerr.Code)
	assert.Contains(t, rerr.Message, "seasonPasses")

	_, err = c.GetMeta(ctx, "short")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, syncproto.CodeValidation, rerr.Code)
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, 0, nil).GetMeta(context.Background(), "some-long-key")
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadGateway, rerr.Status)
	assert.Equal(t, "HTTP_ERROR", rerr.Code)
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 0, 0, nil).GetMeta(context.Background(), "some-long-key")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond, 0, nil).GetMeta(context.Background(), "some-long-key")
	assert.ErrorIs(t, err, ErrNetwork)
}

// Two devices sharing a key through a real sync server.
func TestTwoDevicesConverge(t *testing.T) {
	srv := newSyncServer(t)
	ctx := context.Background()
	const key = "shared-device-key"

	phone := newDevice(t, srv.URL, key)
	tablet := newDevice(t, srv.URL, key)

	_, err := phone.manager.CreatePass(ctx, passes.PassInput{
		LeagueID: "nhl", TeamID: "fla", TeamName: "Florida Panthers", SeasonLabel: "2025-2026",
	})
	require.NoError(t, err)

	action, err := phone.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNoRemote, action)

	_, err = phone.engine.Push(ctx)
	require.NoError(t, err)

	action, err = tablet.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionPulled, action)
	assert.Equal(t, phone.manager.Passes(), tablet.manager.Passes())
	assert.Equal(t, phone.manager.ActiveID(), tablet.manager.ActiveID())

	// Both devices now agree on the server timestamp; nothing more to pull.
	for _, d := range []*device{phone, tablet} {
		action, err = d.engine.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, ActionNone, action)
	}
}
