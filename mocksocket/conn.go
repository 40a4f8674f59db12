package mocksocket

import (
	"net"
	"time"

	"revivio/revivable"
)

// Conn adapts one side of a connected pair of revivable streams to the
// standard net.Conn interface, letting the mock socket machinery be
// exercised with net.Conn-generic test harnesses and client code.
type Conn struct {
	in     *revivable.InputStream
	out    *revivable.OutputStream
	local  net.Addr
	remote net.Addr
}

// NewConn wraps in/out as a net.Conn reporting local and remote as its
// two endpoint addresses.
func NewConn(in *revivable.InputStream, out *revivable.OutputStream, local, remote net.Addr) *Conn {
	return &Conn{in: in, out: out, local: local, remote: remote}
}

func (c *Conn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.out.Write(p) }

// Close closes both the read and write sides. It always attempts both,
// returning the read-side error only if the write side closed cleanly.
func (c *Conn) Close() error {
	outErr := c.out.Close()
	inErr := c.in.Close()
	if outErr != nil {
		return outErr
	}
	return inErr
}

func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.in.SetReadDeadline(t); err != nil {
		return err
	}
	return c.out.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error  { return c.in.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.out.SetWriteDeadline(t) }

// ConnectedPair builds two net.Conn values backed by the same pair of
// killable pipes used by Surrogate, for use with generic net.Conn
// conformance tests and client/server example code.
func ConnectedPair(bufferSize int) (client, server net.Conn) {
	sur := newSurrogate(bufferSize)
	clientAddr := Addr{Host: "client", Port: 0}
	serverAddr := Addr{Host: "server", Port: 0}
	client = NewConn(sur.InputStream, sur.OutputStream, clientAddr, serverAddr)
	server = NewConn(sur.ControlForSocketInput, sur.ControlForSocketOutput, serverAddr, clientAddr)
	return client, server
}
