package mocksocket

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"revivio/revivable"
)

// Addr is a net.Addr that preserves the literal host string a test passed
// to ConnectSocket, instead of requiring it to already be a parseable IP
// (the spec's own example scenarios connect to bare literals like "addr1").
type Addr struct {
	Host string
	Port int
}

func (a Addr) Network() string { return "mock" }
func (a Addr) String() string  { return net.JoinHostPort(a.Host, strconv.Itoa(a.Port)) }

// fixedInetAddr is the literal constant the facade's InetAddr always
// returns, per the design's mock-address invariant.
var fixedInetAddr = net.IPv4(98, 76, 54, 32)

// Facade is the minimal socket surface a system-under-test consumes:
// Connect, InputStream/OutputStream, InetAddr, SetSoTimeout, Close. It
// never does real networking; it is a thin view over one mock socket
// surrogate's two pipe ends.
type Facade struct {
	mu sync.Mutex

	connectAddr      Addr
	connectTimeoutMs int
	connected        bool
	soTimeoutMs      int
	closed           bool

	inputStream  *revivable.InputStream
	outputStream *revivable.OutputStream
}

// Connect records addr and timeoutMs for later test assertions. It never
// blocks and never fails, matching a mock connection that is already
// established by construction.
func (f *Facade) Connect(addr Addr, timeoutMs int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectAddr = addr
	f.connectTimeoutMs = timeoutMs
	f.connected = true
	return nil
}

// ConnectedAddr returns the address and timeout most recently passed to
// Connect, for test assertions.
func (f *Facade) ConnectedAddr() (Addr, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectAddr, f.connectTimeoutMs
}

// InputStream returns the stream the system-under-test reads from: bytes
// the test writes via the surrogate's OutputStream arrive here.
func (f *Facade) InputStream() *revivable.InputStream { return f.inputStream }

// OutputStream returns the stream the system-under-test writes to: bytes
// written here arrive at the surrogate's InputStream on the test side.
func (f *Facade) OutputStream() *revivable.OutputStream { return f.outputStream }

// InetAddr always returns the fixed literal 98.76.54.32, regardless of
// what was passed to Connect.
func (f *Facade) InetAddr() net.IP { return fixedInetAddr }

// SetSoTimeout records a socket read timeout. It has no effect on the
// underlying streams; it exists purely so SUT code that calls it compiles
// and runs unchanged against the mock.
func (f *Facade) SetSoTimeout(ms int) {
	f.mu.Lock()
	f.soTimeoutMs = ms
	f.mu.Unlock()
}

// SoTimeout returns the value last passed to SetSoTimeout.
func (f *Facade) SoTimeout() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.soTimeoutMs
}

// Close closes both of the facade's streams. Idempotent.
func (f *Facade) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	inErr := f.inputStream.Close()
	outErr := f.outputStream.Close()
	if inErr != nil {
		return fmt.Errorf("mocksocket: closing input stream: %w", inErr)
	}
	return outErr
}
