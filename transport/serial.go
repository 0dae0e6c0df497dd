package transport

import (
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// SerialPort is a Port backed by a real device opened through
// github.com/tarm/serial. Reads run on a dedicated goroutine and are
// delivered through Events.OnData; Write is forwarded directly to the
// underlying *serial.Port.
type SerialPort struct {
	Name    string
	Baud    int
	ReadBuf int // size of the per-read buffer; defaults to 1024

	mu     sync.Mutex
	port   *serial.Port
	events Events
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSerialPort returns a SerialPort for name at baud, not yet opened.
func NewSerialPort(name string, baud int) *SerialPort {
	return &SerialPort{Name: name, Baud: baud, ReadBuf: 1024}
}

// SetEvents implements Port.
func (s *SerialPort) SetEvents(ev Events) {
	s.mu.Lock()
	s.events = ev
	s.mu.Unlock()
}

// Open implements Port.
func (s *SerialPort) Open() error {
	s.mu.Lock()
	if s.port != nil {
		s.mu.Unlock()
		return nil
	}
	cfg := &serial.Config{Name: s.Name, Baud: s.Baud}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		s.mu.Unlock()
		s.fireOpen(err)
		return err
	}
	s.port = p
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop()
	s.fireOpen(nil)
	return nil
}

// Close implements Port.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	p := s.port
	stop := s.stopCh
	done := s.doneCh
	s.port = nil
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	close(stop)
	err := p.Close()
	<-done
	s.fireClose(err)
	return err
}

// IsOpen implements Port.
func (s *SerialPort) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Write implements Port.
func (s *SerialPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0, io.ErrClosedPipe
	}
	n, err := port.Write(p)
	if err != nil {
		s.fireError(err)
	}
	return n, err
}

// Drain implements Port. tarm/serial has no distinct flush primitive, so
// Drain is a short yield: writes to the underlying fd are unbuffered on the
// Go side, matching the driver's own synchronous Write semantics.
func (s *SerialPort) Drain() error {
	time.Sleep(0)
	s.fireDrain(nil)
	return nil
}

func (s *SerialPort) readLoop() {
	defer close(s.doneCh)
	buf := make([]byte, s.ReadBuf)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		n, err := s.port.Read(buf)
		if err != nil {
			if err != io.EOF {
				s.fireError(err)
			}
			return
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.fireData(chunk)
		}
	}
}

func (s *SerialPort) fireData(chunk []byte) {
	s.mu.Lock()
	cb := s.events.OnData
	s.mu.Unlock()
	if cb != nil {
		cb(chunk)
	}
}

func (s *SerialPort) fireOpen(err error) {
	s.mu.Lock()
	cb := s.events.OnOpen
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *SerialPort) fireClose(err error) {
	s.mu.Lock()
	cb := s.events.OnClose
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *SerialPort) fireDrain(err error) {
	s.mu.Lock()
	cb := s.events.OnDrain
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *SerialPort) fireError(err error) {
	s.mu.Lock()
	cb := s.events.OnError
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}
