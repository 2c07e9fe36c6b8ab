package memguild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/pkg/protocol"
)

var (
	_ connector.Guild     = (*Guild)(nil)
	_ connector.Responder = (*Responder)(nil)
)

func TestGuild_CreateAndEditOverwrite(t *testing.T) {
	ctx := context.Background()
	g := New("g1")
	cat, err := g.CreateChannel(ctx, protocol.ChannelSpec{Name: "Tickets", Kind: protocol.ChannelCategory})
	require.NoError(t, err)

	ch, err := g.CreateChannel(ctx, protocol.ChannelSpec{
		Name:       "ticket-a",
		ParentID:   cat.ID,
		Overwrites: []protocol.Overwrite{{SubjectID: "g1", Deny: protocol.PermViewChannel}},
	})
	require.NoError(t, err)

	require.NoError(t, g.EditOverwrite(ctx, ch.ID, protocol.Overwrite{SubjectID: "g1", Deny: protocol.PermSendMessages}))
	require.NoError(t, g.EditOverwrite(ctx, ch.ID, protocol.Overwrite{SubjectID: "u1", Allow: protocol.PermViewChannel}))

	got, err := g.Channel(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, got.Overwrites, 2)
	assert.Equal(t, protocol.PermSendMessages, got.Overwrites[0].Deny)
	assert.Equal(t, 2, g.Calls(OpCreateChannel))
}

func TestGuild_CreateUnknownParent(t *testing.T) {
	g := New("g1")
	_, err := g.CreateChannel(context.Background(), protocol.ChannelSpec{Name: "x", ParentID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGuild_MessagesNewestFirstAndLimited(t *testing.T) {
	g := New("g1")
	ch := g.AddChannel(protocol.Channel{Name: "c"})
	for _, c := range []string{"one", "two", "three"} {
		g.AddMessage(ch.ID, protocol.Message{Content: c})
	}

	msgs, err := g.Messages(context.Background(), ch.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestGuild_FailureInjection(t *testing.T) {
	ctx := context.Background()
	g := New("g1")
	ch := g.AddChannel(protocol.Channel{Name: "c"})
	boom := errors.New("boom")

	g.Fail(OpMessages, boom)
	_, err := g.Messages(ctx, ch.ID, 10)
	assert.ErrorIs(t, err, boom)
	g.Fail(OpMessages, nil)
	_, err = g.Messages(ctx, ch.ID, 10)
	assert.NoError(t, err)

	g.FailOverwrite("u1", boom)
	assert.ErrorIs(t, g.EditOverwrite(ctx, ch.ID, protocol.Overwrite{SubjectID: "u1"}), boom)
	assert.NoError(t, g.EditOverwrite(ctx, ch.ID, protocol.Overwrite{SubjectID: "u2"}))

	g.FailSend(ch.ID, boom)
	_, err = g.Send(ctx, ch.ID, protocol.Payload{Content: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, g.SentTo(ch.ID))
}

func TestResponder_Ordering(t *testing.T) {
	ctx := context.Background()
	r := NewResponder()

	assert.ErrorIs(t, r.FollowUp(ctx, protocol.Payload{}), ErrNotAcknowledged)
	require.NoError(t, r.Defer(ctx, true))
	assert.ErrorIs(t, r.Reply(ctx, protocol.Payload{}), ErrAlreadyAcknowledged)
	require.NoError(t, r.EditReply(ctx, protocol.Payload{Content: "done"}))

	calls := r.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, MethodDefer, calls[0].Method)
	assert.True(t, calls[0].Ephemeral)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "done", last.Payload.Content)
}
