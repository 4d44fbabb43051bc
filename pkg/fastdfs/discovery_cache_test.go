package fastdfs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

func TestDiscoveryRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := discoveryRecord{
		IPAddr:         "10.0.0.5",
		Port:           23000,
		StorePathIndex: 2,
		CachedAt:       time.Unix(1700000000, 0),
	}
	decoded, err := decodeDiscoveryRecord(rec.encode())
	require.NoError(t, err)
	assert.Equal(t, rec.IPAddr, decoded.IPAddr)
	assert.Equal(t, rec.Port, decoded.Port)
	assert.Equal(t, rec.StorePathIndex, decoded.StorePathIndex)
	assert.True(t, rec.CachedAt.Equal(decoded.CachedAt))
}

func TestDecodeDiscoveryRecordRejectsMalformed(t *testing.T) {
	_, err := decodeDiscoveryRecord([]byte("not-enough-fields"))
	assert.Error(t, err)

	_, err = decodeDiscoveryRecord([]byte("10.0.0.5|not-a-port|2|1700000000"))
	assert.Error(t, err)
}

func TestDiscoveryRecordEndpointFormatting(t *testing.T) {
	rec := discoveryRecord{IPAddr: "10.0.0.5", Port: 23000}
	assert.Equal(t, "10.0.0.5:23000", rec.endpoint())
}

func TestDiscoveryCacheRecordAndLookup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "discovery")
	log := logging.New(logging.DefaultConfig())

	cache, err := openDiscoveryCache(dir, log)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Lookup("group1")
	assert.False(t, ok)

	rec := discoveryRecord{IPAddr: "10.0.0.5", Port: 23000, StorePathIndex: 1, CachedAt: time.Unix(1700000000, 0)}
	cache.Record("group1", rec)

	got, ok := cache.Lookup("group1")
	require.True(t, ok)
	assert.Equal(t, rec.IPAddr, got.IPAddr)
	assert.Equal(t, rec.Port, got.Port)
}

func TestDiscoveryCacheNilReceiverIsSafe(t *testing.T) {
	var cache *discoveryCache
	cache.Record("group1", discoveryRecord{IPAddr: "10.0.0.5", Port: 23000})
	_, ok := cache.Lookup("group1")
	assert.False(t, ok)
	cache.Close()
}
