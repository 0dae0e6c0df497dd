package transport

import "sync"

// FakePort is an in-memory Port for tests. Writes made with Write are
// appended to Sent; feeding bytes in from a simulated peer is done with
// Deliver, which fires OnData synchronously on the calling goroutine.
//
// FakePort can be scripted to fail: set OpenErr/WriteErr/DrainErr before
// calling the corresponding method, or set DropNextWrite to silently
// discard the next Write's bytes from Sent while still reporting success,
// simulating a driver that loses a chunk.
type FakePort struct {
	Name string

	OpenErr  error
	WriteErr error
	DrainErr error

	DropNextWrite bool

	// Peer, when set, receives every successful Write as a Deliver call,
	// so two FakePorts can stand in for the two ends of one link.
	Peer *FakePort

	mu     sync.Mutex
	open   bool
	events Events
	Sent   []byte
}

// Connect wires a and b so each one's successful writes are delivered to
// the other, simulating two ends of the same serial link.
func Connect(a, b *FakePort) {
	a.Peer = b
	b.Peer = a
}

// NewFakePort returns an unopened FakePort.
func NewFakePort(name string) *FakePort {
	return &FakePort{Name: name}
}

// SetEvents implements Port.
func (f *FakePort) SetEvents(ev Events) {
	f.mu.Lock()
	f.events = ev
	f.mu.Unlock()
}

// Open implements Port.
func (f *FakePort) Open() error {
	f.mu.Lock()
	err := f.OpenErr
	if err == nil {
		f.open = true
	}
	cb := f.events.OnOpen
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
	return err
}

// Close implements Port.
func (f *FakePort) Close() error {
	f.mu.Lock()
	f.open = false
	cb := f.events.OnClose
	f.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
	return nil
}

// CloseWithError simulates an unexpected disconnect (transport fired its own
// close event with a non-nil error, distinct from a caller-initiated Close).
func (f *FakePort) CloseWithError(err error) {
	f.mu.Lock()
	f.open = false
	cb := f.events.OnClose
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// IsOpen implements Port.
func (f *FakePort) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Write implements Port.
func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.WriteErr != nil {
		err := f.WriteErr
		cb := f.events.OnError
		f.mu.Unlock()
		if cb != nil {
			cb(err)
		}
		return 0, err
	}
	if f.DropNextWrite {
		f.DropNextWrite = false
		f.mu.Unlock()
		return len(p), nil
	}
	f.Sent = append(f.Sent, p...)
	peer := f.Peer
	f.mu.Unlock()

	if peer != nil {
		peer.Deliver(p)
	}
	return len(p), nil
}

// Drain implements Port.
func (f *FakePort) Drain() error {
	f.mu.Lock()
	err := f.DrainErr
	cb := f.events.OnDrain
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
	return err
}

// Deliver feeds chunk into the port as if it had just been received from
// the peer, synchronously firing OnData.
func (f *FakePort) Deliver(chunk []byte) {
	f.mu.Lock()
	cb := f.events.OnData
	f.mu.Unlock()
	if cb != nil {
		cb(chunk)
	}
}

// TakeSent returns everything written so far and clears the buffer.
func (f *FakePort) TakeSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.Sent
	f.Sent = nil
	return out
}
