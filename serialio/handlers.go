package serialio

import (
	"fmt"

	"github.com/clint-tools/serialio/wire"
)

// MessageHandler answers an inbound REQUEST. Returning a non-nil error
// causes an ERROR reply carrying err.Error() to be sent back to the peer
// instead of reply.
type MessageHandler func(msg wire.Message) (reply []byte, err error)

// OpenHandler, CloseHandler, DrainHandler and ErrorHandler are transport
// event taps. CloseHandler's unexpected flag is true when the engine will
// attempt to reopen the port (the close was not caller-initiated).
type (
	OpenHandler  func(err error)
	CloseHandler func(unexpected bool, err error)
	DrainHandler func(err error)
	ErrorHandler func(err error)
)

// handlers bundles the optional callback taps, guarded by Engine.mu.
type handlers struct {
	message MessageHandler
	open    OpenHandler
	close   CloseHandler
	drain   DrainHandler
	err     ErrorHandler
}

// OnMessage registers the handler invoked for inbound REQUEST messages. A
// nil handler means requests are silently ignored.
func (e *Engine) OnMessage(h MessageHandler) {
	e.mu.Lock()
	e.handlers.message = h
	e.mu.Unlock()
}

// OnOpen registers the open event tap.
func (e *Engine) OnOpen(h OpenHandler) {
	e.mu.Lock()
	e.handlers.open = h
	e.mu.Unlock()
}

// OnClose registers the close event tap.
func (e *Engine) OnClose(h CloseHandler) {
	e.mu.Lock()
	e.handlers.close = h
	e.mu.Unlock()
}

// OnDrain registers the drain event tap.
func (e *Engine) OnDrain(h DrainHandler) {
	e.mu.Lock()
	e.handlers.drain = h
	e.mu.Unlock()
}

// OnError registers the error event tap.
func (e *Engine) OnError(h ErrorHandler) {
	e.mu.Lock()
	e.handlers.err = h
	e.mu.Unlock()
}

func (e *Engine) guardedMessage(msg wire.Message) (reply []byte, err error) {
	e.mu.Lock()
	h := e.handlers.message
	e.mu.Unlock()
	if h == nil {
		return nil, errNoHandler
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return h(msg)
}

func (e *Engine) guardedOpen(err error) {
	e.mu.Lock()
	h := e.handlers.open
	e.mu.Unlock()
	if h == nil {
		return
	}
	defer e.recoverAndLog("on_open handler")
	h(err)
}

func (e *Engine) guardedClose(unexpected bool, err error) {
	e.mu.Lock()
	h := e.handlers.close
	e.mu.Unlock()
	if h == nil {
		return
	}
	defer e.recoverAndLog("on_close handler")
	h(unexpected, err)
}

func (e *Engine) guardedDrain(err error) {
	e.mu.Lock()
	h := e.handlers.drain
	e.mu.Unlock()
	if h == nil {
		return
	}
	defer e.recoverAndLog("on_drain handler")
	h(err)
}

func (e *Engine) guardedError(err error) {
	e.mu.Lock()
	h := e.handlers.err
	e.mu.Unlock()
	if h == nil {
		return
	}
	defer e.recoverAndLog("on_error handler")
	h(err)
}

func (e *Engine) recoverAndLog(where string) {
	if r := recover(); r != nil {
		e.opts.logger.Printf("%s panicked: %v", where, r)
	}
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("panic in message handler: %v", p.v)
}
