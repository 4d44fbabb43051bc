// Package wire implements the FastDFS binary framing used by every tracker
// and storage exchange: a fixed 10-byte header, big-endian integers,
// zero-padded fixed-width strings, and the metadata record format.
package wire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the length in bytes of every request/response header.
const HeaderSize = 10

// Tracker command codes.
const (
	CmdQueryStoreWithoutGroup uint8 = 101
	CmdQueryFetch             uint8 = 102
	CmdQueryStoreWithGroup    uint8 = 104
)

// Storage command codes.
const (
	CmdUpload         uint8 = 11
	CmdDelete         uint8 = 12
	CmdSetMetadata    uint8 = 13
	CmdDownload       uint8 = 14
	CmdGetMetadata    uint8 = 15
	CmdQueryFileInfo  uint8 = 22
	CmdUploadAppender uint8 = 23
)

// Server status codes that map to a typed error in the errors package.
const (
	StatusSuccess            uint8 = 0
	StatusFileNotFound       uint8 = 2
	StatusFileAlreadyExists  uint8 = 6
	StatusInvalidArgument    uint8 = 22
	StatusInsufficientSpace  uint8 = 28
)

// Header is the decoded form of the 10-byte frame prefix.
type Header struct {
	BodyLength uint64
	Cmd        uint8
	Status     uint8
}

// EncodeHeader writes a Header as exactly HeaderSize bytes:
// 8 big-endian bytes of body length, then cmd, then status.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], h.BodyLength)
	buf[8] = h.Cmd
	buf[9] = h.Status
	return buf
}

// DecodeHeader parses the first HeaderSize bytes of buf into a Header.
// It fails if buf is shorter than HeaderSize; any bytes beyond HeaderSize
// are left untouched by this call.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("invalid response: header requires %d bytes, got %d", HeaderSize, len(buf))
	}
	return Header{
		BodyLength: binary.BigEndian.Uint64(buf[0:8]),
		Cmd:        buf[8],
		Status:     buf[9],
	}, nil
}
