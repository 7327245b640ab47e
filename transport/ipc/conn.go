package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// readPoll is how long a single ReadFrame call waits for bytes before
// reporting that no complete frame is available.
const readPoll = time.Millisecond

// Conn is a full-duplex connection to a Discord client endpoint. Reads
// are non-blocking with peek semantics: ReadFrame buffers partial data
// internally and only returns a frame once the whole thing has arrived.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	pipe   int
	buf    []byte
	broken bool
}

// Connect opens a connection to the Discord client. With pipe in [0,9]
// exactly that endpoint is tried; with pipe == -1 endpoints 0 through 9
// are probed in order and the first one that accepts wins.
func Connect(pipe int) (*Conn, error) {
	if pipe >= 0 {
		if pipe > 9 {
			return nil, fmt.Errorf("ipc: pipe index %d out of range", pipe)
		}
		c, err := dialIndex(pipe)
		if err != nil {
			return nil, err
		}
		return &Conn{conn: c, pipe: pipe}, nil
	}
	for n := 0; n <= 9; n++ {
		c, err := dialIndex(n)
		if err != nil {
			continue
		}
		return &Conn{conn: c, pipe: n}, nil
	}
	return nil, ErrNoEndpoint
}

// NewConn wraps an already-established connection. Used by tests and by
// callers that do their own endpoint discovery.
func NewConn(c net.Conn, pipe int) *Conn {
	return &Conn{conn: c, pipe: pipe}
}

// Pipe returns the endpoint index this connection is bound to.
func (c *Conn) Pipe() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipe
}

// Connected reports whether the connection is still usable.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.broken
}

// ReadFrame returns the next complete frame, or (nil, nil) when no full
// frame has arrived yet. It never blocks longer than the poll interval.
// A protocol or transport error marks the connection broken.
func (c *Conn) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.broken {
		return nil, ErrConnClosed
	}

	for {
		f, n, err := DecodeFrame(c.buf)
		if err != nil {
			c.broken = true
			return nil, err
		}
		if f != nil {
			c.buf = c.buf[n:]
			return f, nil
		}

		scratch := make([]byte, 4096)
		_ = c.conn.SetReadDeadline(time.Now().Add(readPoll))
		n, rerr := c.conn.Read(scratch)
		if n > 0 {
			c.buf = append(c.buf, scratch[:n]...)
		}
		if rerr != nil {
			var nerr net.Error
			if errors.As(rerr, &nerr) && nerr.Timeout() {
				// No more bytes for now; whatever is buffered is
				// not a complete frame yet.
				return nil, nil
			}
			c.broken = true
			return nil, rerr
		}
	}
}

// WriteFrame writes a single frame. A failed write marks the connection
// broken.
func (c *Conn) WriteFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.broken {
		return ErrConnClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write(EncodeFrame(f)); err != nil {
		c.broken = true
		return err
	}
	return nil
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.broken = true
	c.buf = nil
	return err
}
