package fastdfs

import (
	"errors"
	"sync"
	"time"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

// operations composes tracker-lookup and storage-exchange into each public
// client operation. It borrows connections from the pool for the minimum
// interval needed and always returns or drops them before propagating any
// result, on both success and error paths.
type operations struct {
	pool *pool

	cfgMu sync.RWMutex
	cfg   *Config

	log       *logging.Logger
	discovery *discoveryCache
	existence *existenceCache
}

func newOperations(p *pool, cfg *Config, log *logging.Logger, discovery *discoveryCache, existence *existenceCache) *operations {
	return &operations{
		pool:      p,
		cfg:       cfg,
		log:       log.WithComponent("operations"),
		discovery: discovery,
		existence: existence,
	}
}

// currentCfg returns the live configuration, safe to call concurrently with
// setConfig so a Client.Reconfigure takes effect for every in-flight and
// future operation without needing a new operations value.
func (o *operations) currentCfg() *Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg
}

// setConfig swaps in a new live configuration, as Client.Reconfigure does
// after validating it.
func (o *operations) setConfig(cfg *Config) {
	o.cfgMu.Lock()
	defer o.cfgMu.Unlock()
	o.cfg = cfg
}

// withRetry runs fn up to RetryCount times with linear backoff (sleep =
// attempt index, in seconds) between attempts. Retry is applied to every
// error, not just transient ones, so callers wanting fail-fast behavior
// should set RetryCount to 1. RetryCount is read fresh on every call so a
// config hot-reload changes retry behavior for the very next operation.
func (o *operations) withRetry(fn func() error) error {
	retryCount := o.currentCfg().RetryCount
	var lastErr error
	for attempt := 1; attempt <= retryCount; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == retryCount {
			break
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return lastErr
}

// resolveStoreEndpoint performs a tracker query-store exchange for an
// upload and records the result in the discovery cache when enabled.
func (o *operations) resolveStoreEndpoint(group string) (StorageEndpoint, error) {
	trackerConn, err := o.pool.Acquire("")
	if err != nil {
		return StorageEndpoint{}, err
	}
	respGroup, endpoint, err := o.queryStore(trackerConn, group)
	if err != nil {
		o.pool.Drop(trackerConn)
		return StorageEndpoint{}, err
	}
	o.pool.Release(trackerConn)

	o.discovery.Record(respGroup, discoveryRecord{
		IPAddr:         endpoint.IPAddr,
		Port:           endpoint.Port,
		StorePathIndex: endpoint.StorePathIndex,
		CachedAt:       time.Now(),
	})
	return endpoint, nil
}

// resolveFetchEndpoint performs a tracker query-fetch exchange locating the
// storage server for group/remote. If the discovery cache has a hint for
// group, it starts dialing that endpoint in the background before the
// tracker round trip completes — a latency optimization only; the endpoint
// the tracker actually returns is always the one used for the storage
// exchange, whether or not the prewarmed connection ever lands.
func (o *operations) resolveFetchEndpoint(group, remote string) (StorageEndpoint, error) {
	if hint, ok := o.discovery.Lookup(group); ok {
		o.pool.Prewarm(hint.endpoint())
	}

	trackerConn, err := o.pool.Acquire("")
	if err != nil {
		return StorageEndpoint{}, err
	}
	endpoint, err := o.queryFetch(trackerConn, group, remote)
	if err != nil {
		o.pool.Drop(trackerConn)
		return StorageEndpoint{}, err
	}
	o.pool.Release(trackerConn)

	o.discovery.Record(group, discoveryRecord{
		IPAddr:   endpoint.IPAddr,
		Port:     endpoint.Port,
		CachedAt: time.Now(),
	})
	return endpoint, nil
}

// Upload stores data, returning its canonical file ID. If opts.Metadata is
// non-empty, a SetMetadata(overwrite) call follows the upload; its failure
// is logged but never surfaces to the caller or undoes the upload — the
// upload itself is the primary result (see spec's silent-metadata-failure
// open question).
func (o *operations) Upload(data []byte, opts UploadOptions) (fileID string, err error) {
	err = o.withRetry(func() error {
		endpoint, resolveErr := o.resolveStoreEndpoint(opts.Group)
		if resolveErr != nil {
			return resolveErr
		}

		o.pool.Register(endpoint.address())
		storageConn, acquireErr := o.pool.Acquire(endpoint.address())
		if acquireErr != nil {
			return acquireErr
		}

		cmd := wire.CmdUpload
		if opts.Appender {
			cmd = wire.CmdUploadAppender
		}
		respBody, exchangeErr := o.exchange(storageConn, cmd, uploadBody(endpoint.StorePathIndex, opts.Extension, data))
		if exchangeErr != nil {
			o.pool.Drop(storageConn)
			return exchangeErr
		}
		o.pool.Release(storageConn)

		group, remote, parseErr := parseUploadResponse(respBody)
		if parseErr != nil {
			return parseErr
		}
		fileID = wire.JoinFileID(group, remote)
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(opts.Metadata) > 0 {
		if metaErr := o.SetMetadata(fileID, opts.Metadata, MetadataOverwrite); metaErr != nil {
			o.log.Warn("post-upload metadata set failed", map[string]interface{}{
				"file_id": fileID,
				"error":   metaErr.Error(),
			})
		}
	}
	return fileID, nil
}

// Download retrieves file bytes. A zero Offset and zero Length downloads
// the entire file; a nonzero Length downloads exactly that many bytes
// starting at Offset.
func (o *operations) Download(fileID string, opts DownloadOptions) ([]byte, error) {
	group, remote, err := wire.SplitFileID(fileID)
	if err != nil {
		return nil, newError(CodeInvalidArgument, "invalid file id", "download", err)
	}

	var data []byte
	err = o.withRetry(func() error {
		endpoint, resolveErr := o.resolveFetchEndpoint(group, remote)
		if resolveErr != nil {
			return resolveErr
		}

		o.pool.Register(endpoint.address())
		storageConn, acquireErr := o.pool.Acquire(endpoint.address())
		if acquireErr != nil {
			return acquireErr
		}

		respBody, exchangeErr := o.exchange(storageConn, wire.CmdDownload, downloadBody(group, remote, opts.Offset, opts.Length))
		if exchangeErr != nil {
			o.pool.Drop(storageConn)
			return exchangeErr
		}
		o.pool.Release(storageConn)
		data = respBody
		return nil
	})
	if err != nil {
		o.recordIfNotFound(fileID, err)
		return nil, err
	}
	return data, nil
}

// Delete removes a file from the cluster.
func (o *operations) Delete(fileID string) error {
	group, remote, err := wire.SplitFileID(fileID)
	if err != nil {
		return newError(CodeInvalidArgument, "invalid file id", "delete", err)
	}

	err = o.withRetry(func() error {
		endpoint, resolveErr := o.resolveFetchEndpoint(group, remote)
		if resolveErr != nil {
			return resolveErr
		}

		o.pool.Register(endpoint.address())
		storageConn, acquireErr := o.pool.Acquire(endpoint.address())
		if acquireErr != nil {
			return acquireErr
		}

		_, exchangeErr := o.exchange(storageConn, wire.CmdDelete, groupAndRemoteBody(group, remote))
		if exchangeErr != nil {
			o.pool.Drop(storageConn)
			return exchangeErr
		}
		o.pool.Release(storageConn)
		return nil
	})
	o.recordIfNotFound(fileID, err)
	return err
}

// SetMetadata writes metadata for a file, either overwriting or merging
// with whatever is already stored, per flag. Not retried: a single
// tracker+storage round trip per call.
func (o *operations) SetMetadata(fileID string, meta map[string]string, flag MetadataFlag) error {
	group, remote, err := wire.SplitFileID(fileID)
	if err != nil {
		return newError(CodeInvalidArgument, "invalid file id", "set_metadata", err)
	}

	endpoint, err := o.resolveFetchEndpoint(group, remote)
	if err != nil {
		return err
	}

	o.pool.Register(endpoint.address())
	storageConn, err := o.pool.Acquire(endpoint.address())
	if err != nil {
		return err
	}

	_, err = o.exchange(storageConn, wire.CmdSetMetadata, setMetadataBody(group, remote, meta, flag))
	if err != nil {
		o.pool.Drop(storageConn)
		return err
	}
	o.pool.Release(storageConn)
	return nil
}

// GetMetadata reads the metadata map stored for a file. An empty map (no
// error) means the file has no metadata set.
func (o *operations) GetMetadata(fileID string) (map[string]string, error) {
	group, remote, err := wire.SplitFileID(fileID)
	if err != nil {
		return nil, newError(CodeInvalidArgument, "invalid file id", "get_metadata", err)
	}

	endpoint, err := o.resolveFetchEndpoint(group, remote)
	if err != nil {
		return nil, err
	}

	o.pool.Register(endpoint.address())
	storageConn, err := o.pool.Acquire(endpoint.address())
	if err != nil {
		return nil, err
	}

	respBody, err := o.exchange(storageConn, wire.CmdGetMetadata, groupAndRemoteBody(group, remote))
	if err != nil {
		o.pool.Drop(storageConn)
		return nil, err
	}
	o.pool.Release(storageConn)
	return wire.DecodeMetadata(respBody), nil
}

// GetFileInfo queries size, creation time, checksum, and source address for
// a stored file.
func (o *operations) GetFileInfo(fileID string) (FileInfo, error) {
	group, remote, err := wire.SplitFileID(fileID)
	if err != nil {
		return FileInfo{}, newError(CodeInvalidArgument, "invalid file id", "get_file_info", err)
	}

	endpoint, err := o.resolveFetchEndpoint(group, remote)
	if err != nil {
		o.recordIfNotFound(fileID, err)
		return FileInfo{}, err
	}

	o.pool.Register(endpoint.address())
	storageConn, err := o.pool.Acquire(endpoint.address())
	if err != nil {
		return FileInfo{}, err
	}

	respBody, err := o.exchange(storageConn, wire.CmdQueryFileInfo, groupAndRemoteBody(group, remote))
	if err != nil {
		o.pool.Drop(storageConn)
		o.recordIfNotFound(fileID, err)
		return FileInfo{}, err
	}
	o.pool.Release(storageConn)

	info, err := parseFileInfoResponse(respBody)
	if err != nil {
		return FileInfo{}, err
	}
	return info, nil
}

// FileExists reduces GetFileInfo to a boolean: any error (not just
// FileNotFound) yields false, so callers never need to distinguish a
// missing file from a transient lookup failure. The existence cache is not
// read before the network call, so it never skips it — a hit only ever
// carries a "possibly absent" signal, which a Bloom filter cannot
// guarantee free of false positives; GetFileInfo consults it only after a
// FileNotFound, to pick the log level (see recordIfNotFound).
func (o *operations) FileExists(fileID string) bool {
	_, err := o.GetFileInfo(fileID)
	return err == nil
}

// recordIfNotFound updates the existence cache on a confirmed FileNotFound
// and logs at a level that reflects whether this fileID was already known
// absent: a cache hit means some earlier call already confirmed and logged
// it, so a caller polling a known-missing file repeatedly gets Debug-level
// noise instead of a fresh Warn every time.
func (o *operations) recordIfNotFound(fileID string, err error) {
	if !errors.Is(err, ErrFileNotFound) {
		return
	}
	if o.existence.MaybeAbsent(fileID) {
		o.log.Debug("file not found", map[string]interface{}{"file_id": fileID})
	} else {
		o.log.Warn("file not found", map[string]interface{}{"file_id": fileID})
	}
	o.existence.RecordAbsent(fileID)
}
