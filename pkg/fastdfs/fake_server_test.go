package fastdfs

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

// fakeServer emulates just enough of the tracker and storage wire protocol,
// on a single listener, to exercise operations end to end: it answers
// query-store/query-fetch with its own address, then serves Upload,
// Download, Delete, SetMetadata, GetMetadata, and QueryFileInfo against an
// in-memory file table.
type fakeServer struct {
	t        *testing.T
	ln       net.Listener
	addr     string
	mu       sync.Mutex
	files    map[string]*fakeFile
	nextSeq  int
	groupNam string

	failUploadsRemaining int
	uploadAttempts       int
}

type fakeFile struct {
	data []byte
	ext  string
	meta map[string]string
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{
		t:        t,
		ln:       ln,
		addr:     ln.Addr().String(),
		files:    make(map[string]*fakeFile),
		groupNam: "group1",
	}
	t.Cleanup(func() { _ = ln.Close() })
	go s.acceptLoop()
	return s
}

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	for {
		headerBuf := make([]byte, wire.HeaderSize)
		if _, err := readFull(conn, headerBuf); err != nil {
			return
		}
		header, err := wire.DecodeHeader(headerBuf)
		if err != nil {
			return
		}
		body := make([]byte, header.BodyLength)
		if header.BodyLength > 0 {
			if _, err := readFull(conn, body); err != nil {
				return
			}
		}

		respStatus, respBody := s.handle(header.Cmd, body)

		respHeader := wire.EncodeHeader(wire.Header{
			BodyLength: uint64(len(respBody)),
			Cmd:        header.Cmd,
			Status:     respStatus,
		})
		if _, err := conn.Write(respHeader); err != nil {
			return
		}
		if len(respBody) > 0 {
			if _, err := conn.Write(respBody); err != nil {
				return
			}
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// setFailUploads makes the next n upload attempts fail with a permanent
// (non-transient) error before succeeding, so tests can exercise retry
// behavior without a real network fault.
func (s *fakeServer) setFailUploads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUploadsRemaining = n
}

func (s *fakeServer) uploadAttemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadAttempts
}

func (s *fakeServer) ownEndpointBody(includeStorePathIndex bool) []byte {
	host, portStr, _ := net.SplitHostPort(s.addr)
	var port uint64
	fmt.Sscanf(portStr, "%d", &port)

	body := make([]byte, 0, wire.MaxGroupNameLength+16+9)
	body = append(body, wire.PadString(s.groupNam, wire.MaxGroupNameLength)...)
	body = append(body, wire.PadString(host, 16)...)
	portBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(portBuf, port)
	body = append(body, portBuf...)
	if includeStorePathIndex {
		body = append(body, 0)
	}
	return body
}

func (s *fakeServer) handle(cmd uint8, body []byte) (status uint8, respBody []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case wire.CmdQueryStoreWithoutGroup, wire.CmdQueryStoreWithGroup:
		return wire.StatusSuccess, s.ownEndpointBody(true)

	case wire.CmdQueryFetch:
		return wire.StatusSuccess, s.ownEndpointBody(false)

	case wire.CmdUpload, wire.CmdUploadAppender:
		s.uploadAttempts++
		if s.failUploadsRemaining > 0 {
			s.failUploadsRemaining--
			return wire.StatusInsufficientSpace, nil
		}
		if len(body) < 1+wire.MaxExtensionLength {
			return wire.StatusInvalidArgument, nil
		}
		ext := wire.UnpadString(body[1 : 1+wire.MaxExtensionLength])
		data := append([]byte(nil), body[1+wire.MaxExtensionLength:]...)
		s.nextSeq++
		remote := fmt.Sprintf("M00/00/00/fake%04d", s.nextSeq)
		if ext != "" {
			remote += "." + ext
		}
		s.files[remote] = &fakeFile{data: data, ext: ext}
		respBody := make([]byte, 0, wire.MaxGroupNameLength+len(remote))
		respBody = append(respBody, wire.PadString(s.groupNam, wire.MaxGroupNameLength)...)
		respBody = append(respBody, []byte(remote)...)
		return wire.StatusSuccess, respBody

	case wire.CmdDownload:
		if len(body) < 16+wire.MaxGroupNameLength {
			return wire.StatusInvalidArgument, nil
		}
		offset := binary.BigEndian.Uint64(body[0:8])
		length := binary.BigEndian.Uint64(body[8:16])
		remote := string(body[16+wire.MaxGroupNameLength:])
		f, ok := s.files[remote]
		if !ok {
			return wire.StatusFileNotFound, nil
		}
		data := f.data
		if offset > uint64(len(data)) {
			offset = uint64(len(data))
		}
		end := uint64(len(data))
		if length > 0 && offset+length < end {
			end = offset + length
		}
		return wire.StatusSuccess, data[offset:end]

	case wire.CmdDelete:
		if len(body) < wire.MaxGroupNameLength {
			return wire.StatusInvalidArgument, nil
		}
		remote := string(body[wire.MaxGroupNameLength:])
		if _, ok := s.files[remote]; !ok {
			return wire.StatusFileNotFound, nil
		}
		delete(s.files, remote)
		return wire.StatusSuccess, nil

	case wire.CmdSetMetadata:
		if len(body) < 17+wire.MaxGroupNameLength {
			return wire.StatusInvalidArgument, nil
		}
		filenameLen := binary.BigEndian.Uint64(body[0:8])
		flag := MetadataFlag(body[16])
		rest := body[17+wire.MaxGroupNameLength:]
		if uint64(len(rest)) < filenameLen {
			return wire.StatusInvalidArgument, nil
		}
		remote := string(rest[:filenameLen])
		encodedMeta := rest[filenameLen:]
		f, ok := s.files[remote]
		if !ok {
			return wire.StatusFileNotFound, nil
		}
		decoded := wire.DecodeMetadata(encodedMeta)
		if flag == MetadataMerge && f.meta != nil {
			for k, v := range decoded {
				f.meta[k] = v
			}
		} else {
			f.meta = decoded
		}
		return wire.StatusSuccess, nil

	case wire.CmdGetMetadata:
		if len(body) < wire.MaxGroupNameLength {
			return wire.StatusInvalidArgument, nil
		}
		remote := string(body[wire.MaxGroupNameLength:])
		f, ok := s.files[remote]
		if !ok {
			return wire.StatusFileNotFound, nil
		}
		return wire.StatusSuccess, wire.EncodeMetadata(f.meta)

	case wire.CmdQueryFileInfo:
		if len(body) < wire.MaxGroupNameLength {
			return wire.StatusInvalidArgument, nil
		}
		remote := string(body[wire.MaxGroupNameLength:])
		f, ok := s.files[remote]
		if !ok {
			return wire.StatusFileNotFound, nil
		}
		respBody := make([]byte, 0, 36)
		sizeBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(sizeBuf, uint64(len(f.data)))
		respBody = append(respBody, sizeBuf...)
		tsBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(tsBuf, 1700000000)
		respBody = append(respBody, tsBuf...)
		crcBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(crcBuf, 0xDEADBEEF)
		respBody = append(respBody, crcBuf...)
		respBody = append(respBody, wire.PadString("127.0.0.1", 16)...)
		return wire.StatusSuccess, respBody

	default:
		return wire.StatusInvalidArgument, nil
	}
}
