package fastdfs

import (
	"sync"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

// Client is the shared-ownership façade over the pool and operations
// engine. A Client is safe for concurrent use by any number of callers;
// the only interior synchronization it needs beyond the pool's own mutex
// and the operations engine's own config mutex is the reader-writer lock
// guarding the closed flag and cfg, read on every public entry point and
// written at Close and Reconfigure.
type Client struct {
	cfg  *Config
	pool *pool
	ops  *operations

	discovery *discoveryCache
	existence *existenceCache
	log       *logging.Logger

	closedMu sync.RWMutex
	closed   bool
}

// New constructs a Client from cfg, validating it first. The discovery
// cache is opened only if cfg.DiscoveryCachePath is non-empty; any failure
// to open it is returned, since an explicitly configured path that cannot
// be opened is a construction-time misconfiguration, not a best-effort
// runtime hiccup.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, newError(CodeInvalidArgument, "config is required", "new", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, newError(CodeInvalidArgument, "invalid configuration", "new", err)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}

	var disc *discoveryCache
	if cfg.DiscoveryCachePath != "" {
		var err error
		disc, err = openDiscoveryCache(cfg.DiscoveryCachePath, log)
		if err != nil {
			return nil, newError(CodeInvalidArgument, "failed to open discovery cache", "new", err)
		}
	}

	existence := newExistenceCache(cfg.ExistenceCacheCapacity, cfg.ExistenceCacheFPRate)

	p := newPool(cfg.MaxConns, cfg.connectTimeout(), cfg.idleTimeout(), cfg.TrackerEndpoints[0], log)
	for _, ep := range cfg.TrackerEndpoints {
		p.Register(ep)
	}

	ops := newOperations(p, cfg, log, disc, existence)

	return &Client{
		cfg:       cfg,
		pool:      p,
		ops:       ops,
		discovery: disc,
		existence: existence,
		log:       log.WithComponent("client"),
	}, nil
}

func (c *Client) checkClosed() error {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// Upload stores data and returns its canonical file ID.
func (c *Client) Upload(data []byte, opts UploadOptions) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	return c.ops.Upload(data, opts)
}

// Download retrieves file bytes, optionally as a byte range.
func (c *Client) Download(fileID string, opts DownloadOptions) ([]byte, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	return c.ops.Download(fileID, opts)
}

// Delete removes a file from the cluster.
func (c *Client) Delete(fileID string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return c.ops.Delete(fileID)
}

// SetMetadata writes metadata for a file.
func (c *Client) SetMetadata(fileID string, meta map[string]string, flag MetadataFlag) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return c.ops.SetMetadata(fileID, meta, flag)
}

// GetMetadata reads metadata for a file.
func (c *Client) GetMetadata(fileID string) (map[string]string, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	return c.ops.GetMetadata(fileID)
}

// GetFileInfo queries size, creation time, checksum, and source address.
func (c *Client) GetFileInfo(fileID string) (FileInfo, error) {
	if err := c.checkClosed(); err != nil {
		return FileInfo{}, err
	}
	return c.ops.GetFileInfo(fileID)
}

// FileExists reports whether a file exists, never returning an error —
// any failure (including the client being closed) is reduced to false.
func (c *Client) FileExists(fileID string) bool {
	if err := c.checkClosed(); err != nil {
		return false
	}
	return c.ops.FileExists(fileID)
}

// PoolMetrics returns a point-in-time snapshot of connection-pool
// occupancy, for callers that want to report on it (the CLI's -verbose
// flag prints it after every command).
func (c *Client) PoolMetrics() PoolMetrics {
	m := c.pool.Metrics()
	return PoolMetrics{Endpoints: m.Endpoints, IdleConns: m.IdleConns, ClosedState: m.ClosedState}
}

// Reconfigure re-validates newCfg, registers any tracker endpoints it adds
// that the pool doesn't already know about, and pushes the new settings
// into the pool and the operation engine so RetryCount, timeouts, and
// MaxConns all take effect starting with the next operation. It never
// removes an endpoint, even one dropped from newCfg's list, since a
// connection for it may currently be checked out — the pool's own "drop,
// don't yank" discipline extends to reconfiguration.
func (c *Client) Reconfigure(newCfg *Config) error {
	if err := newCfg.Validate(); err != nil {
		return newError(CodeInvalidArgument, "invalid configuration", "reconfigure", err)
	}
	if err := c.checkClosed(); err != nil {
		return err
	}
	for _, ep := range newCfg.TrackerEndpoints {
		c.pool.Register(ep)
	}
	c.pool.Reconfigure(newCfg.MaxConns, newCfg.connectTimeout(), newCfg.idleTimeout())
	c.ops.setConfig(newCfg)

	c.closedMu.Lock()
	c.cfg = newCfg
	c.closedMu.Unlock()
	return nil
}

// Close shuts down the Client: the pool first, then the discovery cache's
// badger handle. Idempotent — a second Close is a no-op.
func (c *Client) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pool.Close()
	c.discovery.Close()
	return nil
}
