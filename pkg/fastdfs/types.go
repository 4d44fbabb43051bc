package fastdfs

import (
	"net"
	"strconv"
	"time"
)

// StorageEndpoint is the server descriptor a tracker returns in response to
// a query-store or query-fetch request. StorePathIndex is meaningful only
// for uploads (it selects which storage root on the server to write to);
// downloads, deletes, and metadata operations ignore it.
type StorageEndpoint struct {
	IPAddr         string
	Port           uint16
	StorePathIndex uint8
}

func (e StorageEndpoint) address() string {
	return net.JoinHostPort(e.IPAddr, strconv.Itoa(int(e.Port)))
}

// FileInfo is the result of a QueryFileInfo operation.
type FileInfo struct {
	FileSize     uint64
	CreateTime   time.Time
	CRC32        uint32
	SourceIPAddr string
}

// MetadataFlag selects whether SetMetadata overwrites or merges with any
// metadata already stored for a file.
type MetadataFlag byte

const (
	MetadataOverwrite MetadataFlag = 'O'
	MetadataMerge     MetadataFlag = 'M'
)

// UploadOptions controls an Upload call. A zero value uploads with no
// extension and no metadata, and produces a regular (non-appender) file.
type UploadOptions struct {
	Extension string
	Metadata  map[string]string
	Appender  bool
	Group     string // optional; empty selects the group-less query-store form
}

// DownloadOptions controls a Download call. A zero value downloads the
// entire file.
type DownloadOptions struct {
	Offset uint64
	Length uint64 // 0 means "to end of file"; otherwise exactly Length bytes starting at Offset
}

// PoolMetrics is a point-in-time snapshot of connection-pool occupancy,
// exposed for diagnostics (see Client.PoolMetrics).
type PoolMetrics struct {
	Endpoints   int
	IdleConns   int
	ClosedState bool
}
