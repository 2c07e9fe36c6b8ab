package dispatch

import (
	"fmt"
	"time"

	"github.com/marti95432/discordbot/internal/flow"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// User-facing texts.
const (
	textCreating        = "Creating your ticket…"
	textUnrecognized    = "That prompt is no longer active. Press Open Ticket to start again."
	textFailure         = "Something went wrong handling that action."
	textNotTicket       = "Use /close inside a ticket channel."
	textCloseDenied     = "Only staff or the ticket opener can close this ticket."
	textSetupDenied     = "Only server managers can post the ticket panel."
	textClosedCommand   = "Ticket closed and archived."
	textClosedButton    = "Ticket closed."
	textFAQUnconfigured = "FAQ channel isn’t configured. Ask an admin to set `FAQ_CHANNEL_ID` in .env."
)

// renderer builds every payload the dispatcher sends. faqID may be empty.
type renderer struct {
	faqID string
	now   func() time.Time
}

func (r renderer) intro(requester protocol.Actor) protocol.Payload {
	faq := ""
	if r.faqID != "" {
		faq = " in " + protocol.ChannelMention(r.faqID)
	}
	return protocol.Payload{
		Embeds: []protocol.Embed{{
			Title:       "🎟️ Need help?",
			Description: "Let’s make sure we help you efficiently.\n\n" +
				"1) **Have you read our FAQ**" + faq + "?\n" +
				"2) **Do you need in-game support** or something else?\n" +
				"3) If in-game: **Have you filed an in-game /report** already?\n\n" +
				"Click **Open Ticket** to begin.",
			Footer:    "Requested by " + requester.Tag(),
			Timestamp: r.now(),
		}},
		Components: []protocol.ActionRow{{Buttons: []protocol.Button{{
			CustomID: flow.IDOpenTicket,
			Label:    "Open Ticket",
			Style:    protocol.ButtonPrimary,
			Emoji:    "🎫",
		}}}},
	}
}

func (r renderer) faqPrompt(flowID string) protocol.Payload {
	desc := "Please confirm you have read the server’s FAQ or pinned guides."
	if r.faqID != "" {
		desc = "Please confirm you have read the FAQ in " + protocol.ChannelMention(r.faqID) + ". It may already solve your issue."
	}
	return protocol.Payload{
		Embeds: []protocol.Embed{{Title: "Step 1/3 — Have you read the FAQ?", Description: desc}},
		Components: []protocol.ActionRow{{Buttons: []protocol.Button{
			{CustomID: flow.ControlID(flow.IDFaqYes, flowID), Label: "I read the FAQ ✅", Style: protocol.ButtonSuccess},
			{CustomID: flow.ControlID(flow.IDFaqNo, flowID), Label: "I haven't ❌", Style: protocol.ButtonDanger},
		}}},
		Ephemeral: true,
	}
}

func (r renderer) faqRequired() protocol.Payload {
	desc := "Check the server’s FAQ/pins and then try again."
	if r.faqID != "" {
		desc = "Check " + protocol.ChannelMention(r.faqID) + " and then try again."
	}
	return protocol.Payload{
		Embeds:     []protocol.Embed{{Title: "Please read the FAQ first 🙏", Description: desc}},
		Components: []protocol.ActionRow{},
	}
}

func (r renderer) categoryPrompt(flowID string) protocol.Payload {
	return protocol.Payload{
		Embeds: []protocol.Embed{{
			Title:       "Step 2/3 — What kind of support do you need?",
			Description: "Choose one option below.",
		}},
		Components: []protocol.ActionRow{{Select: &protocol.SelectMenu{
			CustomID:    flow.ControlID(flow.IDSupportSelect, flowID),
			Placeholder: "Choose the type of support you need…",
			Options: []protocol.SelectOption{
				{Label: "In-game support", Value: string(flow.CategoryInGame), Description: "Issues while playing on the server"},
				{Label: "Other support", Value: string(flow.CategoryOther), Description: "Discord, donations, bans, website, etc."},
			},
		}}},
	}
}

func (r renderer) reportPrompt(flowID string) protocol.Payload {
	return protocol.Payload{
		Embeds: []protocol.Embed{{
			Title:       "Step 3/3 — Did you make an in-game /report?",
			Description: "If not, please try **/report** in-game first; staff often responds quicker there.",
		}},
		Components: []protocol.ActionRow{{Buttons: []protocol.Button{
			{CustomID: flow.ControlID(flow.IDReportYes, flowID), Label: "Yes, I filed /report", Style: protocol.ButtonSuccess},
			{CustomID: flow.ControlID(flow.IDReportNo, flowID), Label: "Not yet", Style: protocol.ButtonSecondary},
		}}},
	}
}

func (r renderer) reportRequired() protocol.Payload {
	return protocol.Payload{
		Embeds: []protocol.Embed{{
			Title:       "Please file an in-game /report first",
			Description: "Open FiveM, join the server, and type **/report** with a short description. If you still need help afterward, open a ticket again.",
		}},
		Components: []protocol.ActionRow{},
	}
}

// creating replaces the prompt while the channel is being made.
func (r renderer) creating() protocol.Payload {
	return protocol.Payload{
		Content:    textCreating,
		Embeds:     []protocol.Embed{},
		Components: []protocol.ActionRow{},
	}
}

func (r renderer) created(channelID string) protocol.Payload {
	return ephemeral("✅ Ticket created: " + protocol.ChannelMention(channelID))
}

func (r renderer) conprob(user protocol.Actor, link string) protocol.Payload {
	return protocol.Payload{
		Content: fmt.Sprintf("Hey %s, if you’re having trouble connecting, try this link:\n**%s**\n\n"+
			"• Make sure FiveM is closed before clicking.\n"+
			"• Disable VPNs and turn off Windows Metered Connection.\n"+
			"• If it still fails: restart router/PC and try again.", user.Mention(), link),
		Mentions: &protocol.AllowedMentions{Users: []string{user.ID}},
	}
}

func (r renderer) faqPointer() protocol.Payload {
	if r.faqID == "" {
		return ephemeral(textFAQUnconfigured)
	}
	return ephemeral("Please read our FAQ in " + protocol.ChannelMention(r.faqID) + " first.")
}

func ephemeral(content string) protocol.Payload {
	return protocol.Payload{Content: content, Ephemeral: true}
}
