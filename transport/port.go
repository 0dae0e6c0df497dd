// Package transport defines the byte-oriented transport contract the
// SerialIO engine drives, and a tarm/serial-backed implementation of it.
package transport

// Events are the callbacks a Port drives. All are optional; a nil callback
// is simply not invoked. Each callback runs on the goroutine whose action
// triggered it: SerialPort fires OnData and read errors from its read
// goroutine and the other callbacks from the goroutine that called Open,
// Close, Write or Drain; FakePort fires every callback from the goroutine
// that called the triggering method (Deliver for OnData). Callbacks of
// different kinds can therefore run concurrently.
type Events struct {
	OnData  func(chunk []byte)
	OnOpen  func(err error)
	OnClose func(err error)
	OnDrain func(err error)
	OnError func(err error)
}

// Port is the transport contract the engine requires of the external
// serial-port driver: open/close by device path, an event stream of
// data/open/close/drain/error, and write+drain for outbound bytes.
type Port interface {
	// Open opens the underlying device. It fires OnOpen on completion.
	Open() error
	// Close closes the underlying device. It fires OnClose on completion.
	Close() error
	// IsOpen reports whether the device is currently open.
	IsOpen() bool
	// Write submits bytes for transmission. It does not wait for the
	// bytes to be flushed; call Drain for that.
	Write(p []byte) (int, error)
	// Drain blocks until everything submitted to Write has been flushed
	// to the OS, firing OnDrain on completion.
	Drain() error
	// SetEvents installs the event callbacks. It must be called before
	// Open to avoid missing the open event.
	SetEvents(Events)
}
