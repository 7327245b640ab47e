//go:build windows

package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

var dialTimeout = 2 * time.Second

// dialIndex connects to the named pipe for the given endpoint index.
func dialIndex(n int) (net.Conn, error) {
	return winio.DialPipe(fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, n), &dialTimeout)
}
