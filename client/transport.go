package client

import (
	"github.com/ffx64/discord-presence-go/transport/ipc"
)

// Transport is the engine's view of the pipe. The default implementation
// dials the real Discord endpoints; tests inject fakes.
//
// ReadFrame must be non-blocking: it returns (nil, nil) while no
// complete frame is available. Connect with pipe == -1 probes endpoints
// 0 through 9 and settles on the first that accepts.
type Transport interface {
	Connect(pipe int) error
	ReadFrame() (*ipc.Frame, error)
	WriteFrame(ipc.Frame) error
	Close() error
	Connected() bool
	Pipe() int
}

// pipeTransport adapts ipc.Conn to the Transport interface.
type pipeTransport struct {
	conn *ipc.Conn
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{}
}

func (t *pipeTransport) Connect(pipe int) error {
	conn, err := ipc.Connect(pipe)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *pipeTransport) ReadFrame() (*ipc.Frame, error) {
	if t.conn == nil {
		return nil, ipc.ErrConnClosed
	}
	return t.conn.ReadFrame()
}

func (t *pipeTransport) WriteFrame(f ipc.Frame) error {
	if t.conn == nil {
		return ipc.ErrConnClosed
	}
	return t.conn.WriteFrame(f)
}

func (t *pipeTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *pipeTransport) Connected() bool {
	return t.conn != nil && t.conn.Connected()
}

func (t *pipeTransport) Pipe() int {
	if t.conn == nil {
		return -1
	}
	return t.conn.Pipe()
}
