package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// trackedResponder remembers whether the interaction has been acknowledged,
// so the failure boundary knows to reply or to follow up.
type trackedResponder struct {
	inner connector.Responder
	acked atomic.Bool
}

func (t *trackedResponder) Reply(ctx context.Context, p protocol.Payload) error {
	return t.ack(t.inner.Reply(ctx, p))
}

func (t *trackedResponder) Update(ctx context.Context, p protocol.Payload) error {
	return t.ack(t.inner.Update(ctx, p))
}

func (t *trackedResponder) Defer(ctx context.Context, ephemeral bool) error {
	return t.ack(t.inner.Defer(ctx, ephemeral))
}

func (t *trackedResponder) EditReply(ctx context.Context, p protocol.Payload) error {
	return t.inner.EditReply(ctx, p)
}

func (t *trackedResponder) FollowUp(ctx context.Context, p protocol.Payload) error {
	return t.inner.FollowUp(ctx, p)
}

func (t *trackedResponder) ack(err error) error {
	if err == nil {
		t.acked.Store(true)
	}
	return err
}

// notify sends p as the first response, or as a follow-up once one exists.
func (t *trackedResponder) notify(ctx context.Context, p protocol.Payload) error {
	if t.acked.Load() {
		return t.inner.FollowUp(ctx, p)
	}
	return t.Reply(ctx, p)
}
