package memguild

import (
	"context"
	"errors"
	"sync"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// Responder method names recorded in Call.Method.
const (
	MethodReply     = "reply"
	MethodUpdate    = "update"
	MethodDefer     = "defer"
	MethodEditReply = "edit_reply"
	MethodFollowUp  = "follow_up"
)

var (
	// ErrAlreadyAcknowledged mirrors the platform rejecting a second initial response.
	ErrAlreadyAcknowledged = errors.New("memguild: interaction already acknowledged")
	// ErrNotAcknowledged mirrors the platform rejecting edits before any response.
	ErrNotAcknowledged = errors.New("memguild: interaction not acknowledged")
)

// Call is one recorded responder invocation.
type Call struct {
	Method    string
	Payload   protocol.Payload
	Ephemeral bool // Defer only
}

// Responder records every response made to one interaction.
type Responder struct {
	mu    sync.Mutex
	acked bool
	calls []Call
	fail  map[string]error
}

// NewResponder creates a fresh, unacknowledged responder.
func NewResponder() *Responder {
	return &Responder{fail: make(map[string]error)}
}

// Fail makes method return err.
func (r *Responder) Fail(method string, err error) {
	r.mu.Lock()
	r.fail[method] = err
	r.mu.Unlock()
}

// Calls returns the recorded calls in order.
func (r *Responder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Last returns the most recent call.
func (r *Responder) Last() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}, false
	}
	return r.calls[len(r.calls)-1], true
}

func (r *Responder) Reply(_ context.Context, p protocol.Payload) error {
	return r.initial(Call{Method: MethodReply, Payload: p})
}

func (r *Responder) Update(_ context.Context, p protocol.Payload) error {
	return r.initial(Call{Method: MethodUpdate, Payload: p})
}

func (r *Responder) Defer(_ context.Context, ephemeral bool) error {
	return r.initial(Call{Method: MethodDefer, Ephemeral: ephemeral})
}

func (r *Responder) EditReply(_ context.Context, p protocol.Payload) error {
	return r.after(Call{Method: MethodEditReply, Payload: p})
}

func (r *Responder) FollowUp(_ context.Context, p protocol.Payload) error {
	return r.after(Call{Method: MethodFollowUp, Payload: p})
}

func (r *Responder) initial(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[c.Method]; err != nil {
		return err
	}
	if r.acked {
		return ErrAlreadyAcknowledged
	}
	r.acked = true
	r.calls = append(r.calls, c)
	return nil
}

func (r *Responder) after(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[c.Method]; err != nil {
		return err
	}
	if !r.acked {
		return ErrNotAcknowledged
	}
	r.calls = append(r.calls, c)
	return nil
}
