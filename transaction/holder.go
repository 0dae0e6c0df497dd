// Package transaction maps outbound request ids to pending completions,
// enforces per-transaction timeouts, and resolves or rejects exactly once
// per id.
package transaction

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clint-tools/serialio/wire"
)

// TimeoutError is returned to a caller whose transaction had no matching
// reply within its timeout.
type TimeoutError struct {
	ID uint16
}

func (e *TimeoutError) Error() string {
	return "timeout reached"
}

// Is reports whether target is also a *TimeoutError, so callers can use
// errors.Is(err, &transaction.TimeoutError{}) without matching on ID.
func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

// RemoteError wraps the text payload of a peer's ERROR reply.
type RemoteError struct {
	ID      uint16
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// ErrUnknownID names the case of an id with no pending transaction. No
// Holder method returns it: Resolve and Reject ignore unknown ids, and Get
// and Remove report them through their ok result.
var ErrUnknownID = errors.New("transaction: unknown id")

// Transaction tracks one outbound request awaiting a reply.
type Transaction struct {
	ID    uint16
	done  chan struct{}
	once  sync.Once
	msg   wire.Message
	err   error
	timer *time.Timer
}

func newTransaction(id uint16) *Transaction {
	return &Transaction{ID: id, done: make(chan struct{})}
}

func (t *Transaction) settle(msg wire.Message, err error) {
	t.once.Do(func() {
		t.msg = msg
		t.err = err
		close(t.done)
	})
}

// Await blocks until the transaction is resolved or rejected. The holder's
// own timer is the sole timeout source; Await itself never times out
// independently and there is no separate cancellation path.
func (t *Transaction) Await() (wire.Message, error) {
	<-t.done
	return t.msg, t.err
}

// Holder is the id -> pending-completion table. At most one Transaction
// exists per id at any instant; removal always cancels the associated
// timer so a late timer fire can never double-signal a Transaction.
type Holder struct {
	mu      sync.Mutex
	entries map[uint16]*Transaction
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{entries: make(map[uint16]*Transaction)}
}

// Add registers a new Transaction for id with the given timeout. If timeout
// elapses before Resolve or Reject is called for id, the Transaction is
// rejected with a *TimeoutError.
func (h *Holder) Add(id uint16, timeout time.Duration) *Transaction {
	t := newTransaction(id)
	h.mu.Lock()
	h.entries[id] = t
	h.mu.Unlock()

	t.timer = time.AfterFunc(timeout, func() {
		h.Reject(id, &TimeoutError{ID: id})
	})
	return t
}

// Get returns the pending transaction for id, if any.
func (h *Holder) Get(id uint16) (*Transaction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.entries[id]
	return t, ok
}

// Remove cancels id's timer, erases its entry, and returns the removed
// Transaction, if one existed.
func (h *Holder) Remove(id uint16) (*Transaction, bool) {
	h.mu.Lock()
	t, ok := h.entries[id]
	if ok {
		delete(h.entries, id)
	}
	h.mu.Unlock()
	if ok && t.timer != nil {
		t.timer.Stop()
	}
	return t, ok
}

// Resolve removes id's transaction and fulfills it with msg. It is a no-op
// if id has no pending transaction.
func (h *Holder) Resolve(id uint16, msg wire.Message) {
	t, ok := h.Remove(id)
	if !ok {
		return
	}
	t.settle(msg, nil)
}

// Reject removes id's transaction and fails it with err. It is a no-op if
// id has no pending transaction.
func (h *Holder) Reject(id uint16, err error) {
	t, ok := h.Remove(id)
	if !ok {
		return
	}
	t.settle(wire.Message{}, err)
}

// Len reports the number of currently in-flight transactions, mainly for
// tests and diagnostics.
func (h *Holder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// String aids test failure messages.
func (h *Holder) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fmt.Sprintf("Holder(%d pending)", len(h.entries))
}
