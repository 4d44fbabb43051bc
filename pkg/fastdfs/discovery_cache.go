package fastdfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

// discoveryRecord is the cached hint for a group's most recently seen
// storage endpoint. It is never authoritative — see discoveryCache.
type discoveryRecord struct {
	IPAddr         string
	Port           uint16
	StorePathIndex uint8
	CachedAt       time.Time
}

func (rec discoveryRecord) endpoint() string {
	return fmt.Sprintf("%s:%d", rec.IPAddr, rec.Port)
}

func (rec discoveryRecord) encode() []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%d", rec.IPAddr, rec.Port, rec.StorePathIndex, rec.CachedAt.Unix()))
}

func decodeDiscoveryRecord(data []byte) (discoveryRecord, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 4 {
		return discoveryRecord{}, fmt.Errorf("malformed discovery record: %d fields", len(parts))
	}
	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return discoveryRecord{}, fmt.Errorf("malformed discovery record port: %w", err)
	}
	storePathIndex, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return discoveryRecord{}, fmt.Errorf("malformed discovery record store path index: %w", err)
	}
	unixTime, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return discoveryRecord{}, fmt.Errorf("malformed discovery record timestamp: %w", err)
	}
	return discoveryRecord{
		IPAddr:         parts[0],
		Port:           uint16(port),
		StorePathIndex: uint8(storePathIndex),
		CachedAt:       time.Unix(unixTime, 0),
	}, nil
}

// discoveryCache is a best-effort, optional badger-backed store of the
// storage endpoint a tracker last returned for a group. Operations may use
// a hit to pre-warm a connection (Pool.Prewarm) ahead of a tracker round
// trip, but the tracker's own answer is always used for the actual exchange
// — a stale or wrong cache entry can only cost a wasted connect, never
// misroute a request. A failure to open the cache is returned to the caller;
// read, write and close failures are logged and swallowed.
type discoveryCache struct {
	db  *badger.DB
	log *logging.Logger
}

func openDiscoveryCache(path string, log *logging.Logger) (*discoveryCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open discovery cache at %q: %w", path, err)
	}
	return &discoveryCache{db: db, log: log.WithComponent("discovery_cache")}, nil
}

// Record stores the endpoint the tracker most recently returned for group.
// Failures are logged and swallowed — this is a side channel, never the
// path of record.
func (c *discoveryCache) Record(group string, rec discoveryRecord) {
	if c == nil {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(group), rec.encode())
	})
	if err != nil {
		c.log.Warn("discovery cache write failed", map[string]interface{}{"group": group, "error": err.Error()})
	}
}

// Lookup returns the cached record for group, if any. A miss (including any
// internal or decode error) returns ok == false — callers must treat this
// exactly like "no hint available," never as a definitive answer.
func (c *discoveryCache) Lookup(group string) (rec discoveryRecord, ok bool) {
	if c == nil {
		return discoveryRecord{}, false
	}
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(group))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			c.log.Warn("discovery cache read failed", map[string]interface{}{"group": group, "error": err.Error()})
		}
		return discoveryRecord{}, false
	}
	rec, decodeErr := decodeDiscoveryRecord(raw)
	if decodeErr != nil {
		c.log.Warn("discovery cache decode failed", map[string]interface{}{"group": group, "error": decodeErr.Error()})
		return discoveryRecord{}, false
	}
	return rec, true
}

// Close closes the underlying badger handle. Safe to call on a nil cache
// (disabled mode).
func (c *discoveryCache) Close() {
	if c == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		c.log.Warn("discovery cache close failed", map[string]interface{}{"error": err.Error()})
	}
}
