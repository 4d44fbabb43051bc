package fastdfs

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEchoListener runs a minimal TCP server that echoes back whatever it
// reads, closing the connection when the test ends.
func startEchoListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						if _, werr := c.Write(buf[:n]); werr != nil {
							return
						}
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestDialConnectionAndSendReceive(t *testing.T) {
	endpoint := startEchoListener(t)

	c, err := dialConnection(endpoint, time.Second)
	require.NoError(t, err)
	defer c.close()

	require.NoError(t, c.send([]byte("ping"), time.Second))
	resp, err := c.receiveExactly(4, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(resp))
}

func TestDialConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = dialConnection(addr, time.Second)
	assert.Error(t, err)
}

func TestConnectionIdleFor(t *testing.T) {
	endpoint := startEchoListener(t)
	c, err := dialConnection(endpoint, time.Second)
	require.NoError(t, err)
	defer c.close()

	past := time.Now().Add(-5 * time.Second)
	c.lastUsed = past
	assert.GreaterOrEqual(t, c.idleFor(time.Now()), 5*time.Second)
}

func TestReceiveExactlyTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	}()

	c, err := dialConnection(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.close()

	_, err = c.receiveExactly(4, 20*time.Millisecond)
	assert.Error(t, err)
}
