package mocksocket

import (
	"net"
	"testing"

	"golang.org/x/net/nettest"
)

// TestConnConformsToNetConn runs the standard net.Conn conformance suite
// against a connected pair of mock sockets, the same way a real
// net.Pipe or TCP loopback pair would be validated.
func TestConnConformsToNetConn(t *testing.T) {
	nettest.TestConn(t, func() (c1, c2 net.Conn, stop func(), err error) {
		c1, c2 = ConnectedPair(4096)
		stop = func() {
			c1.Close()
			c2.Close()
		}
		return c1, c2, stop, nil
	})
}
