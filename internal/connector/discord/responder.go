package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/pkg/protocol"
)

var _ connector.Responder = (*responder)(nil)

// responder answers one interaction through the interaction webhook.
type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *responder) respond(ctx context.Context, typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{Type: typ, Data: data}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: respond to %s: %w", r.interaction.ID, err)
	}
	return nil
}

func (r *responder) Reply(ctx context.Context, p protocol.Payload) error {
	return r.respond(ctx, discordgo.InteractionResponseChannelMessageWithSource, toResponseData(p))
}

func (r *responder) Update(ctx context.Context, p protocol.Payload) error {
	return r.respond(ctx, discordgo.InteractionResponseUpdateMessage, toResponseData(p))
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(ctx, discordgo.InteractionResponseDeferredChannelMessageWithSource, data)
}

func (r *responder) EditReply(ctx context.Context, p protocol.Payload) error {
	if _, err := r.session.InteractionResponseEdit(r.interaction, toWebhookEdit(p), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: edit reply to %s: %w", r.interaction.ID, err)
	}
	return nil
}

func (r *responder) FollowUp(ctx context.Context, p protocol.Payload) error {
	if _, err := r.session.FollowupMessageCreate(r.interaction, true, toWebhookParams(p), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: follow up %s: %w", r.interaction.ID, err)
	}
	return nil
}
