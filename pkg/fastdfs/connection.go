package fastdfs

import (
	"io"
	"net"
	"time"
)

// connection owns exactly one TCP stream for its lifetime: the endpoint it
// was dialed against, and the instant of its last successful I/O. It is
// exclusive-use — from acquire to release exactly one caller performs
// sequential send/receive on it; the pool never hands the same connection
// to two callers at once.
type connection struct {
	conn     net.Conn
	endpoint string
	lastUsed time.Time
}

// dialConnection opens a new TCP connection to endpoint under connectTimeout,
// enabling TCP_NODELAY to bound small-message latency (every fastdfs frame
// is small: a 10-byte header plus a modest body).
func dialConnection(endpoint string, connectTimeout time.Duration) (*connection, error) {
	d := net.Dialer{Timeout: connectTimeout}
	c, err := d.Dial("tcp", endpoint)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, newError(CodeTimeout, "connect timed out", "connect", err)
		}
		return nil, newError(CodeConnection, "connect failed", "connect", err)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &connection{conn: c, endpoint: endpoint, lastUsed: time.Now()}, nil
}

// send writes all of data under an overall deadline of timeout. Any error —
// deadline expiry or underlying I/O failure — leaves the connection's wire
// state undefined; the caller must drop it rather than return it to the
// pool.
func (c *connection) send(data []byte, timeout time.Duration) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return newError(CodeConnection, "set write deadline", "write", err)
	}
	_, err := c.conn.Write(data)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return newError(CodeTimeout, "write timed out", "write", err)
		}
		return newError(CodeConnection, "write failed", "write", err)
	}
	c.lastUsed = time.Now()
	return nil
}

// receiveExactly reads exactly n bytes under a single overall deadline of
// timeout, returning a freshly allocated buffer. Same error contract as
// send, with operation "read".
func (c *connection) receiveExactly(n int, timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, newError(CodeConnection, "set read deadline", "read", err)
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(c.conn, buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, newError(CodeTimeout, "read timed out", "read", err)
		}
		return nil, newError(CodeConnection, "read failed", "read", err)
	}
	c.lastUsed = time.Now()
	return buf, nil
}

// close releases the underlying socket. Errors are not actionable by the
// caller at this point — the connection is already being discarded.
func (c *connection) close() {
	_ = c.conn.Close()
}

// idleFor reports how long this connection has sat unused as of now.
func (c *connection) idleFor(now time.Time) time.Duration {
	return now.Sub(c.lastUsed)
}
