package fastdfs

import (
	"sync"
	"time"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

// pool multiplexes TCP connections across tracker and storage endpoints. It
// maintains a LIFO free-list of idle connections per endpoint: LIFO favors
// reusing the most-recently-active connection, which is most likely to
// still have live TCP state and warm kernel buffers. Per-endpoint lists
// isolate endpoints from each other, so one slow storage server cannot
// starve the free list for another.
type pool struct {
	mu        sync.Mutex
	freeLists map[string][]*connection
	closed    bool

	maxConns       int
	connectTimeout time.Duration
	idleTimeout    time.Duration

	defaultEndpoint string

	log *logging.Logger
}

// poolMetrics is a point-in-time snapshot of pool occupancy, useful for
// diagnostics and surfaced to callers through Client.PoolMetrics.
type poolMetrics struct {
	Endpoints   int
	IdleConns   int
	ClosedState bool
}

func newPool(maxConns int, connectTimeout, idleTimeout time.Duration, defaultEndpoint string, log *logging.Logger) *pool {
	return &pool{
		freeLists:       make(map[string][]*connection),
		maxConns:        maxConns,
		connectTimeout:  connectTimeout,
		idleTimeout:     idleTimeout,
		defaultEndpoint: defaultEndpoint,
		log:             log.WithComponent("pool"),
	}
}

// Register ensures a free-list exists for endpoint. Idempotent. Called
// whenever Operations learns of a storage endpoint from a tracker response,
// so new endpoints are usable without client reconfiguration.
func (p *pool) Register(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.freeLists[endpoint]; !ok {
		p.freeLists[endpoint] = nil
	}
}

// Reconfigure updates the pool's capacity and timeout parameters in place,
// so a config hot-reload changes behavior for every future Acquire and
// Release without disrupting connections already checked out.
func (p *pool) Reconfigure(maxConns int, connectTimeout, idleTimeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxConns = maxConns
	p.connectTimeout = connectTimeout
	p.idleTimeout = idleTimeout
}

// Prewarm dials endpoint in the background and, if the dial succeeds
// before the pool closes or that endpoint's free-list fills up, deposits
// the connection there for a later Acquire to reuse. It is best-effort: any
// dial error is swallowed, since the caller that triggered the prewarm
// (a discovery-cache hint) always still performs its own authoritative
// Acquire afterward regardless of whether this connection ever appears.
func (p *pool) Prewarm(endpoint string) {
	if endpoint == "" {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if _, ok := p.freeLists[endpoint]; !ok {
		p.freeLists[endpoint] = nil
	}
	full := len(p.freeLists[endpoint]) >= p.maxConns
	connectTimeout := p.connectTimeout
	p.mu.Unlock()
	if full {
		return
	}

	go func() {
		c, err := dialConnection(endpoint, connectTimeout)
		if err != nil {
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed || len(p.freeLists[endpoint]) >= p.maxConns {
			c.close()
			return
		}
		c.lastUsed = time.Now()
		p.freeLists[endpoint] = append(p.freeLists[endpoint], c)
	}()
}

// Acquire returns a connection to endpoint, reusing a fresh idle one if
// available or dialing a new one otherwise. An empty endpoint selects the
// pool's default (the first configured tracker endpoint).
func (p *pool) Acquire(endpoint string) (*connection, error) {
	if endpoint == "" {
		endpoint = p.defaultEndpoint
	}
	if endpoint == "" {
		return nil, newError(CodeInvalidArgument, "no endpoint specified and no default available", "acquire", nil)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, newError(CodeClientClosed, "pool is closed", "acquire", nil)
	}

	now := time.Now()
	for {
		list := p.freeLists[endpoint]
		if len(list) == 0 {
			break
		}
		last := len(list) - 1
		c := list[last]
		p.freeLists[endpoint] = list[:last]

		if c.idleFor(now) < p.idleTimeout {
			p.mu.Unlock()
			return c, nil
		}
		c.close()
		// stale: loop and try the next one down the LIFO
	}
	p.mu.Unlock()

	return dialConnection(endpoint, p.connectTimeout)
}

// Release returns a connection to its endpoint's free-list, or drops it if
// the pool is closed, the free-list is already at capacity, or the
// connection has gone stale while checked out.
func (p *pool) Release(c *connection) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		c.close()
		return
	}

	list := p.freeLists[c.endpoint]
	if len(list) >= p.maxConns {
		c.close()
		return
	}

	now := time.Now()
	if c.idleFor(now) > p.idleTimeout {
		c.close()
		return
	}
	c.lastUsed = now

	list = append(list, c)
	p.freeLists[c.endpoint] = evictStale(list, now, p.idleTimeout)
}

// Drop discards a connection without returning it to the pool — the
// correct move any time the wire state is undefined: after a send/receive
// error, or after reading a non-zero status response whose remaining body
// bytes weren't fully consumed.
func (p *pool) Drop(c *connection) {
	if c == nil {
		return
	}
	c.close()
}

// evictStale removes any entries in list that have gone idle beyond
// idleTimeout, closing them. It runs opportunistically on Release so a
// free-list doesn't silently accumulate connections a slow caller held
// across a long pause.
func evictStale(list []*connection, now time.Time, idleTimeout time.Duration) []*connection {
	fresh := list[:0]
	for _, c := range list {
		if c.idleFor(now) > idleTimeout {
			c.close()
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// Close marks the pool closed, closes every idle connection, and clears
// every free-list. Subsequent Acquire calls fail immediately with
// ClientClosed; subsequent Release calls silently drop. Idempotent.
func (p *pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for endpoint, list := range p.freeLists {
		for _, c := range list {
			c.close()
		}
		p.freeLists[endpoint] = nil
	}
}

// Metrics returns a point-in-time snapshot of pool occupancy.
func (p *pool) Metrics() poolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle := 0
	for _, list := range p.freeLists {
		idle += len(list)
	}
	return poolMetrics{
		Endpoints:   len(p.freeLists),
		IdleConns:   idle,
		ClosedState: p.closed,
	}
}
