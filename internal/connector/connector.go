package connector

import (
	"context"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// Connector is a live platform session (gateway connection + REST client).
type Connector interface {
	// Name returns the connector type (e.g., "discord").
	Name() string
	// Start connects and begins delivering interactions. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Connected reports whether the gateway session is currently up.
	Connected() bool
}

// Guild is the REST surface of the one community the bot serves.
// Every method is a network round trip; callers must not hold locks across them.
type Guild interface {
	// EveryoneRoleID returns the id of the implicit role every member holds.
	EveryoneRoleID() string
	// Channels lists every channel and category in the guild.
	Channels(ctx context.Context) ([]protocol.Channel, error)
	// Channel fetches one channel by id.
	Channel(ctx context.Context, id string) (protocol.Channel, error)
	// CreateChannel creates a channel or category.
	CreateChannel(ctx context.Context, spec protocol.ChannelSpec) (protocol.Channel, error)
	// EditOverwrite replaces one subject's overwrite on a channel.
	EditOverwrite(ctx context.Context, channelID string, ow protocol.Overwrite) error
	// Messages returns up to limit of the most recent messages, newest first.
	Messages(ctx context.Context, channelID string, limit int) ([]protocol.Message, error)
	// Send posts a message to a channel.
	Send(ctx context.Context, channelID string, p protocol.Payload) (protocol.Message, error)
}

// Responder answers one interaction. Reply or Update or Defer must be the
// first call; FollowUp and EditReply are only valid afterwards.
type Responder interface {
	// Reply sends a fresh message as the first response.
	Reply(ctx context.Context, p protocol.Payload) error
	// Update replaces the message that carried the pressed control.
	Update(ctx context.Context, p protocol.Payload) error
	// Defer acknowledges now and promises an EditReply later.
	Defer(ctx context.Context, ephemeral bool) error
	// EditReply replaces the deferred or original reply.
	EditReply(ctx context.Context, p protocol.Payload) error
	// FollowUp sends an additional message after the first response.
	FollowUp(ctx context.Context, p protocol.Payload) error
}

// InteractionHandler processes one inbound interaction. The connector calls
// it on its own goroutine per interaction.
type InteractionHandler func(ctx context.Context, in protocol.Interaction, r Responder)
