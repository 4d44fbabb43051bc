package fastdfs

import (
	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

// queryStore asks the tracker to select a storage server for an upload.
// group is optional: empty selects the group-less form (cmd 101), non-empty
// selects the group form (cmd 104). An empty response body means the
// tracker could not find any storage server for the request.
func (o *operations) queryStore(trackerConn *connection, group string) (respGroup string, endpoint StorageEndpoint, err error) {
	var body []byte
	cmd := wire.CmdQueryStoreWithoutGroup
	if group != "" {
		body = wire.PadString(group, wire.MaxGroupNameLength)
		cmd = wire.CmdQueryStoreWithGroup
	}

	resp, err := o.exchange(trackerConn, cmd, body)
	if err != nil {
		return "", StorageEndpoint{}, err
	}
	if len(resp) == 0 {
		return "", StorageEndpoint{}, newError(CodeNoStorageServer, "tracker returned no storage server", "query_store", nil)
	}
	// padded group (16) | padded ip (16) | port (8 BE) | store_path_index (1)
	const wantLen = wire.MaxGroupNameLength + 16 + 8 + 1
	if len(resp) < wantLen {
		return "", StorageEndpoint{}, newError(CodeInvalidResponse, "tracker query-store response truncated", "query_store", nil)
	}
	respGroup = wire.UnpadString(resp[:wire.MaxGroupNameLength])
	ip := wire.UnpadString(resp[wire.MaxGroupNameLength : wire.MaxGroupNameLength+16])
	port := wire.DecodeUint64(resp[wire.MaxGroupNameLength+16 : wire.MaxGroupNameLength+16+8])
	storePathIndex := resp[wire.MaxGroupNameLength+16+8]

	return respGroup, StorageEndpoint{
		IPAddr:         ip,
		Port:           uint16(port),
		StorePathIndex: storePathIndex,
	}, nil
}

// queryFetch asks the tracker to locate the storage server currently
// holding group/remote. The response omits store_path_index, which is
// meaningful only for uploads.
func (o *operations) queryFetch(trackerConn *connection, group, remote string) (StorageEndpoint, error) {
	body := make([]byte, 0, wire.MaxGroupNameLength+len(remote))
	body = append(body, wire.PadString(group, wire.MaxGroupNameLength)...)
	body = append(body, []byte(remote)...)

	resp, err := o.exchange(trackerConn, wire.CmdQueryFetch, body)
	if err != nil {
		return StorageEndpoint{}, err
	}
	const wantLen = wire.MaxGroupNameLength + 16 + 8
	if len(resp) < wantLen {
		return StorageEndpoint{}, newError(CodeInvalidResponse, "tracker query-fetch response truncated", "query_fetch", nil)
	}
	ip := wire.UnpadString(resp[wire.MaxGroupNameLength : wire.MaxGroupNameLength+16])
	port := wire.DecodeUint64(resp[wire.MaxGroupNameLength+16 : wire.MaxGroupNameLength+16+8])

	return StorageEndpoint{IPAddr: ip, Port: uint16(port)}, nil
}
