package mocksocket

import (
	"revivio/pipe"
	"revivio/revivable"
)

// Surrogate bundles a Facade (the SUT-visible socket) with the test-side
// view of the same connection and direct control handles onto the SUT's
// own stream ends.
//
// Wiring: two killable pipes back every surrogate, an ingress pipe
// (test writes, SUT reads) and an egress pipe (SUT writes, test reads).
// The test-side InputStream is therefore the egress pipe's read end, and
// the test-side OutputStream is the ingress pipe's write end; the
// Facade's InputStream/OutputStream are the other two ends of the same
// two pipes.
type Surrogate struct {
	Facade *Facade

	// InputStream is what the test reads: bytes the SUT wrote via
	// Facade.OutputStream.
	InputStream *revivable.InputStream
	// OutputStream is what the test writes: bytes the SUT will read via
	// Facade.InputStream.
	OutputStream *revivable.OutputStream

	// ControlForSocketInput is the exact stream backing Facade.InputStream,
	// exposed so a test can kill/queue exceptions on/interrupt the SUT's
	// read side directly rather than through the facade.
	ControlForSocketInput *revivable.InputStream
	// ControlForSocketOutput is the exact stream backing
	// Facade.OutputStream.
	ControlForSocketOutput *revivable.OutputStream
}

func newSurrogate(bufferSize int) *Surrogate {
	ingressRead, ingressWrite := pipe.New(bufferSize)
	egressRead, egressWrite := pipe.New(bufferSize)

	facade := &Facade{
		inputStream:  ingressRead,
		outputStream: egressWrite,
	}

	return &Surrogate{
		Facade:                 facade,
		InputStream:            egressRead,
		OutputStream:           ingressWrite,
		ControlForSocketInput:  ingressRead,
		ControlForSocketOutput: egressWrite,
	}
}

// Close tears down both pipes backing the surrogate.
func (m *Surrogate) Close() error {
	facadeErr := m.Facade.Close()
	inErr := m.InputStream.Close()
	outErr := m.OutputStream.Close()
	if facadeErr != nil {
		return facadeErr
	}
	if inErr != nil {
		return inErr
	}
	return outErr
}
