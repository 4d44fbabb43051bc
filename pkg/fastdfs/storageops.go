package fastdfs

import (
	"time"

	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

func unixSeconds(s uint64) time.Time {
	return time.Unix(int64(s), 0)
}

// exchange sends one framed request (header + body) on conn and returns the
// response body. The contract callers must follow: a non-nil error means
// the connection's wire state is no longer trustworthy and it must be
// dropped, never released; a nil error means the full response (including
// its declared body) was consumed and the connection is safe to release.
//
// A looser reading would return the connection to the pool after a
// non-zero status without reading its body, which can desynchronize framing
// for the next user of that connection. Dropping here avoids that class of
// bug entirely.
func (o *operations) exchange(conn *connection, cmd uint8, body []byte) ([]byte, error) {
	networkTimeout := o.currentCfg().networkTimeout()
	header := wire.EncodeHeader(wire.Header{BodyLength: uint64(len(body)), Cmd: cmd, Status: wire.StatusSuccess})

	if err := conn.send(header, networkTimeout); err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if err := conn.send(body, networkTimeout); err != nil {
			return nil, err
		}
	}

	respHeaderBuf, err := conn.receiveExactly(wire.HeaderSize, networkTimeout)
	if err != nil {
		return nil, err
	}
	respHeader, err := wire.DecodeHeader(respHeaderBuf)
	if err != nil {
		return nil, newError(CodeInvalidResponse, "malformed response header", "exchange", err)
	}

	if respHeader.Status != wire.StatusSuccess {
		return nil, errorFromStatus(respHeader.Status, "exchange")
	}

	if respHeader.BodyLength == 0 {
		return nil, nil
	}
	respBody, err := conn.receiveExactly(int(respHeader.BodyLength), networkTimeout)
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// uploadBody builds the request body for Upload/UploadAppender:
// store_path_index (1) | ext-name padded to 6 | data.
func uploadBody(storePathIndex uint8, ext string, data []byte) []byte {
	body := make([]byte, 0, 1+wire.MaxExtensionLength+len(data))
	body = append(body, storePathIndex)
	body = append(body, wire.PadString(ext, wire.MaxExtensionLength)...)
	body = append(body, data...)
	return body
}

// parseUploadResponse parses the "padded group (16) | remote_filename bytes"
// response body of Upload/UploadAppender into its two parts.
func parseUploadResponse(body []byte) (group, remote string, err error) {
	if len(body) < wire.MaxGroupNameLength {
		return "", "", newError(CodeInvalidResponse, "upload response truncated", "upload", nil)
	}
	group = wire.UnpadString(body[:wire.MaxGroupNameLength])
	remote = string(body[wire.MaxGroupNameLength:])
	if remote == "" {
		return "", "", newError(CodeInvalidResponse, "upload response missing remote filename", "upload", nil)
	}
	return group, remote, nil
}

// groupAndRemoteBody builds the common "padded group (16) | remote_filename"
// request body shared by Download, Delete, GetMetadata, and QueryFileInfo.
func groupAndRemoteBody(group, remote string) []byte {
	body := make([]byte, 0, wire.MaxGroupNameLength+len(remote))
	body = append(body, wire.PadString(group, wire.MaxGroupNameLength)...)
	body = append(body, []byte(remote)...)
	return body
}

// downloadBody builds the Download request body:
// offset (8 BE) | length (8 BE) | padded group (16) | remote_filename.
func downloadBody(group, remote string, offset, length uint64) []byte {
	body := make([]byte, 0, 16+wire.MaxGroupNameLength+len(remote))
	body = append(body, wire.EncodeUint64(offset)...)
	body = append(body, wire.EncodeUint64(length)...)
	body = append(body, groupAndRemoteBody(group, remote)...)
	return body
}

// setMetadataBody builds the SetMetadata request body:
// filename_len (8 BE) | meta_len (8 BE) | flag (1) | padded group (16) |
// remote_filename | meta-encoded.
func setMetadataBody(group, remote string, meta map[string]string, flag MetadataFlag) []byte {
	encodedMeta := wire.EncodeMetadata(meta)
	body := make([]byte, 0, 17+wire.MaxGroupNameLength+len(remote)+len(encodedMeta))
	body = append(body, wire.EncodeUint64(uint64(len(remote)))...)
	body = append(body, wire.EncodeUint64(uint64(len(encodedMeta)))...)
	body = append(body, byte(flag))
	body = append(body, groupAndRemoteBody(group, remote)...)
	body = append(body, encodedMeta...)
	return body
}

// parseFileInfoResponse parses the QueryFileInfo response body:
// size (8 BE) | create_ts (8 BE) | crc32 (4 BE) | padded source_ip (16).
func parseFileInfoResponse(body []byte) (FileInfo, error) {
	const wantLen = 8 + 8 + 4 + 16
	if len(body) < wantLen {
		return FileInfo{}, newError(CodeInvalidResponse, "file-info response truncated", "get_file_info", nil)
	}
	size := wire.DecodeUint64(body[0:8])
	createTs := wire.DecodeUint64(body[8:16])
	crc32 := wire.DecodeUint32(body[16:20])
	sourceIP := wire.UnpadString(body[20:36])
	return FileInfo{
		FileSize:     size,
		CreateTime:   unixSeconds(createTs),
		CRC32:        crc32,
		SourceIPAddr: sourceIP,
	}, nil
}
