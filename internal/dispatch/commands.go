package dispatch

import "github.com/marti95432/discordbot/pkg/protocol"

// Slash command names.
const (
	CommandSetupTickets = "setup_tickets"
	CommandConprob      = "conprob"
	CommandFAQ          = "faq"
	CommandClose        = "close"
)

// Commands returns the slash commands the dispatcher handles, for registration.
func Commands() []protocol.CommandSpec {
	return []protocol.CommandSpec{
		{
			Name:        CommandSetupTickets,
			Description: "Post the “Open Ticket” panel in the current channel.",
			Permission:  protocol.PermManageGuild,
		},
		{
			Name:        CommandConprob,
			Description: "Tag a user and suggest trying a connection link.",
			Options: []protocol.CommandOption{
				{Name: "user", Description: "User to tag", Kind: protocol.OptionUser, Required: true},
				{Name: "link", Description: "Direct connect link (e.g., fivem://connect/IP:PORT)", Kind: protocol.OptionString},
			},
		},
		{
			Name:        CommandFAQ,
			Description: "Show where to read the FAQ (if configured).",
		},
		{
			Name:        CommandClose,
			Description: "Close this ticket and archive a simple transcript.",
			Permission:  protocol.PermManageChannels,
		},
	}
}
