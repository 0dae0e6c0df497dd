// Package serialio implements the request/reply messaging engine: it binds
// a byte-oriented transport.Port to a wire.Parser, correlates replies
// through a transaction.Holder, serializes writes through a
// queue.WriteQueue, and supervises reopening the port across unexpected
// disconnects.
package serialio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clint-tools/serialio/queue"
	"github.com/clint-tools/serialio/transaction"
	"github.com/clint-tools/serialio/transport"
	"github.com/clint-tools/serialio/wire"
)

// errNoHandler is used internally when a REQUEST arrives with no message
// handler registered; that means "do nothing", not an error reply, so
// callers of guardedMessage must check for it specially.
var errNoHandler = errors.New("serialio: no message handler registered")

// Stats reports cumulative byte counters for an Engine.
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
}

// Engine is the SerialIO send/receive engine: the binding of one transport
// to its parser, transaction table and write queue.
type Engine struct {
	port transport.Port
	opts options

	parser       *wire.Parser
	transactions *transaction.Holder
	writeQueue   *queue.WriteQueue

	mu       sync.Mutex
	handlers handlers
	closing  bool

	reopenAttempts uint64
	reopenTimer    *time.Timer

	bytesSent     uint64
	bytesReceived uint64
}

// NewEngine returns an Engine bound to port, not yet open.
func NewEngine(port transport.Port, opts ...Option) *Engine {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	e := &Engine{
		port:         port,
		opts:         o,
		parser:       wire.NewParser(),
		transactions: transaction.NewHolder(),
		writeQueue:   queue.New(),
	}
	e.parser.SetLogger(o.logger)
	e.parser.OnMessage(e.handleMessage)
	port.SetEvents(transport.Events{
		OnData:  e.onData,
		OnOpen:  e.onOpen,
		OnClose: e.onClose,
		OnDrain: e.onDrain,
		OnError: e.onError,
	})
	return e
}

// Open opens the underlying port. It clears the closing flag so an
// unexpected close afterward triggers the reopen supervisor.
func (e *Engine) Open() error {
	e.mu.Lock()
	e.closing = false
	e.mu.Unlock()
	return e.port.Open()
}

// Close closes the underlying port. Setting the closing flag first tells
// the internal close handler this was caller-initiated, so no reopen is
// attempted.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closing = true
	if e.reopenTimer != nil {
		e.reopenTimer.Stop()
	}
	e.mu.Unlock()
	return e.port.Close()
}

// IsOpen reflects the underlying port's open state.
func (e *Engine) IsOpen() bool {
	return e.port.IsOpen()
}

// Stats returns a snapshot of the byte counters.
func (e *Engine) Stats() Stats {
	return Stats{
		BytesSent:     atomic.LoadUint64(&e.bytesSent),
		BytesReceived: atomic.LoadUint64(&e.bytesReceived),
	}
}

func (e *Engine) onData(chunk []byte) {
	atomic.AddUint64(&e.bytesReceived, uint64(len(chunk)))
	e.parser.Feed(chunk)
}

func (e *Engine) onOpen(err error) {
	e.guardedOpen(err)
}

func (e *Engine) onDrain(err error) {
	e.guardedDrain(err)
}

func (e *Engine) onError(err error) {
	e.guardedError(err)
}

func (e *Engine) onClose(err error) {
	e.mu.Lock()
	closing := e.closing
	e.mu.Unlock()

	e.guardedClose(!closing, err)

	if closing {
		return
	}
	e.scheduleReopen()
}

func (e *Engine) scheduleReopen() {
	attempt := atomic.AddUint64(&e.reopenAttempts, 1)
	e.opts.logger.Printf("unexpected close, scheduling reopen attempt %d in %s", attempt, e.opts.reopenDelay)

	e.mu.Lock()
	e.reopenTimer = time.AfterFunc(e.opts.reopenDelay, e.attemptReopen)
	e.mu.Unlock()
}

func (e *Engine) attemptReopen() {
	e.mu.Lock()
	closing := e.closing
	e.mu.Unlock()
	if closing {
		return
	}

	if err := e.port.Open(); err != nil {
		e.opts.logger.Printf("reopen attempt failed: %v", err)
		e.scheduleReopen()
		return
	}
	atomic.StoreUint64(&e.reopenAttempts, 0)
}

// handleMessage is the inbound dispatch table: it routes a parsed frame to
// the request handler, the ping auto-reply, or a pending transaction.
func (e *Engine) handleMessage(msg wire.Message) {
	switch msg.Type() {
	case wire.TypeRequest:
		e.handleRequest(msg)
	case wire.TypePing:
		if _, err := e.sendNoWait(wire.NewMessage(nil, wire.TypeReply, msg.ID())); err != nil {
			e.opts.logger.Printf("failed to send ping reply for id %d: %v", msg.ID(), err)
		}
	case wire.TypeReply:
		e.transactions.Resolve(msg.ID(), msg)
	case wire.TypeError:
		e.transactions.Reject(msg.ID(), &transaction.RemoteError{ID: msg.ID(), Message: msg.PayloadString()})
	default:
		e.opts.logger.Printf("dropping message id %d with unknown type %#x", msg.ID(), byte(msg.Type()))
	}
}

func (e *Engine) handleRequest(msg wire.Message) {
	reply, err := e.guardedMessage(msg)
	if errors.Is(err, errNoHandler) {
		return
	}
	if err != nil {
		if _, sendErr := e.sendNoWait(wire.NewMessage([]byte(err.Error()), wire.TypeError, msg.ID())); sendErr != nil {
			e.opts.logger.Printf("failed to send error reply for id %d: %v", msg.ID(), sendErr)
		}
		return
	}
	if _, sendErr := e.sendNoWait(wire.NewMessage(reply, wire.TypeReply, msg.ID())); sendErr != nil {
		e.opts.logger.Printf("failed to send reply for id %d: %v", msg.ID(), sendErr)
	}
}

// sendNoWait enqueues a REPLY/ERROR/PING-reply write without registering a
// transaction; these never expect a remote answer.
func (e *Engine) sendNoWait(msg wire.Message) (wire.Message, error) {
	done := e.writeQueue.Submit(func() error {
		return e.sendInParts(msg.Raw())
	})
	if err := <-done; err != nil {
		return wire.Message{}, err
	}
	return msg, nil
}

// SendRequest sends a REQUEST carrying data and blocks for the matching
// REPLY or ERROR, up to the engine's default timeout.
func (e *Engine) SendRequest(data []byte) (wire.Message, error) {
	return e.SendRequestTimeout(data, e.opts.timeout)
}

// SendRequestTimeout is SendRequest with an explicit timeout.
func (e *Engine) SendRequestTimeout(data []byte, timeout time.Duration) (wire.Message, error) {
	msg := wire.NewMessage(data, wire.TypeRequest, wire.NextID())
	return e.Send(msg, timeout)
}

// SendRequestText is a convenience wrapper for callers whose request body
// is naturally text.
func (e *Engine) SendRequestText(data string) (wire.Message, error) {
	return e.SendRequest([]byte(data))
}

// SendReply sends a REPLY with the given id. Used by callers that answer a
// REQUEST out of band from OnMessage.
func (e *Engine) SendReply(data []byte, id uint16) error {
	_, err := e.sendNoWait(wire.NewMessage(data, wire.TypeReply, id))
	return err
}

// SendErrorReply sends an ERROR with the given id, payload set to err's
// message text.
func (e *Engine) SendErrorReply(sendErr error, id uint16) error {
	_, err := e.sendNoWait(wire.NewMessage([]byte(sendErr.Error()), wire.TypeError, id))
	return err
}

// Ping sends a PING and blocks for the matching REPLY, up to the engine's
// ping timeout.
func (e *Engine) Ping() (wire.Message, error) {
	msg := wire.NewMessage(nil, wire.TypePing, wire.NextID())
	return e.Send(msg, e.opts.pingTimeout)
}

// Send is the core send primitive. It registers a transaction for msg.ID()
// (REPLY messages resolve immediately once written, since no remote reply
// is expected for a REPLY), enqueues the write, and blocks for the outcome.
func (e *Engine) Send(msg wire.Message, timeout time.Duration) (wire.Message, error) {
	if timeout <= 0 {
		timeout = e.opts.timeout
	}
	txn := e.transactions.Add(msg.ID(), timeout)

	done := e.writeQueue.Submit(func() error {
		return e.sendInParts(msg.Raw())
	})

	go func() {
		err := <-done
		if err != nil {
			e.transactions.Reject(msg.ID(), err)
			return
		}
		if msg.Type() == wire.TypeReply {
			e.transactions.Resolve(msg.ID(), msg)
		}
	}()

	return txn.Await()
}

// sendInParts writes buf to the port in chunks of at most opts.chunkSize,
// draining after each chunk. It is the workaround for transports that drop
// bytes on large single writes.
func (e *Engine) sendInParts(buf []byte) error {
	chunk := e.opts.chunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	for from := 0; from < len(buf); {
		end := from + chunk
		if end > len(buf) {
			end = len(buf)
		}
		n, err := e.port.Write(buf[from:end])
		if err != nil {
			return fmt.Errorf("serialio: write failed: %w", err)
		}
		atomic.AddUint64(&e.bytesSent, uint64(n))
		if err := e.port.Drain(); err != nil {
			return fmt.Errorf("serialio: drain failed: %w", err)
		}
		from = end
	}
	return nil
}

