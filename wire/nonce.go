package wire

import (
	"strconv"
	"sync/atomic"
)

// nonce is the process-wide counter behind NextNonce. Starting from 1
// keeps "0" free so an empty nonce is always distinguishable.
var nonce atomic.Uint64

// NextNonce returns a fresh correlation token: a monotonically
// increasing integer rendered as a decimal string.
func NextNonce() string {
	return strconv.FormatUint(nonce.Add(1), 10)
}
