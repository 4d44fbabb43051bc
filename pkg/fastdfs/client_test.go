package fastdfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	srv := startFakeServer(t)

	cfg := DefaultConfig()
	cfg.TrackerEndpoints = []string{srv.addr}
	cfg.RetryCount = 1
	cfg.Logger = logging.New(logging.DefaultConfig())

	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestClientUploadDownloadDeleteRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)

	fileID, err := client.Upload([]byte("round trip"), UploadOptions{Extension: "txt"})
	require.NoError(t, err)

	data, err := client.Download(fileID, DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "round trip", string(data))

	require.NoError(t, client.Delete(fileID))

	assert.False(t, client.FileExists(fileID))
}

func TestClientGetFileInfoForMissingFile(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.GetFileInfo("group1/M00/00/00/missing.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.False(t, client.FileExists("group1/M00/00/00/missing.txt"))
}

func TestClientRejectsOperationsAfterClose(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, client.Close())

	_, err := client.Upload([]byte("x"), UploadOptions{})
	assert.ErrorIs(t, err, ErrClientClosed)

	_, err = client.Download("group1/remote", DownloadOptions{})
	assert.ErrorIs(t, err, ErrClientClosed)

	assert.False(t, client.FileExists("group1/remote"))
}

func TestClientCloseIsIdempotent(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestClientReconfigureRegistersNewTrackerEndpoints(t *testing.T) {
	client, srv := newTestClient(t)
	other := startFakeServer(t)

	newCfg := DefaultConfig()
	newCfg.TrackerEndpoints = []string{srv.addr, other.addr}
	require.NoError(t, client.Reconfigure(newCfg))

	fileID, err := client.Upload([]byte("after reconfigure"), UploadOptions{Extension: "txt"})
	require.NoError(t, err)
	assert.NotEmpty(t, fileID)
}

func TestClientReconfigureChangesRetryCountForNextOperation(t *testing.T) {
	client, srv := newTestClient(t)
	srv.setFailUploads(2)

	newCfg := DefaultConfig()
	newCfg.TrackerEndpoints = []string{srv.addr}
	newCfg.RetryCount = 3
	require.NoError(t, client.Reconfigure(newCfg))

	fileID, err := client.Upload([]byte("survives two failures"), UploadOptions{Extension: "txt"})
	require.NoError(t, err, "RetryCount=3 from the reconfigured config must reach operations.withRetry")
	assert.NotEmpty(t, fileID)
	assert.Equal(t, 3, srv.uploadAttemptCount())
}

func TestClientPoolMetricsReflectsPoolState(t *testing.T) {
	client, _ := newTestClient(t)

	before := client.PoolMetrics()
	assert.Equal(t, 0, before.IdleConns)
	assert.False(t, before.ClosedState)

	fileID, err := client.Upload([]byte("x"), UploadOptions{Extension: "txt"})
	require.NoError(t, err)
	_, err = client.Download(fileID, DownloadOptions{})
	require.NoError(t, err)

	after := client.PoolMetrics()
	assert.GreaterOrEqual(t, after.IdleConns, 1, "a connection released back to the pool should show up as idle")

	require.NoError(t, client.Close())
	assert.True(t, client.PoolMetrics().ClosedState)
}

func TestClientReconfigureRejectsInvalidConfig(t *testing.T) {
	client, _ := newTestClient(t)
	bad := DefaultConfig()
	bad.TrackerEndpoints = nil

	err := client.Reconfigure(bad)
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrackerEndpoints = nil
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
