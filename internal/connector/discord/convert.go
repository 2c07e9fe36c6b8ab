package discord

import (
	"bytes"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// maxMessagesPerFetch is the platform cap on one history request.
const maxMessagesPerFetch = 100

func toChannel(c *discordgo.Channel) protocol.Channel {
	ch := protocol.Channel{
		ID:       c.ID,
		Name:     c.Name,
		Kind:     toChannelKind(c.Type),
		ParentID: c.ParentID,
		Topic:    c.Topic,
	}
	for _, ow := range c.PermissionOverwrites {
		ch.Overwrites = append(ch.Overwrites, toOverwrite(ow))
	}
	return ch
}

func toChannelKind(t discordgo.ChannelType) protocol.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return protocol.ChannelText
	case discordgo.ChannelTypeGuildCategory:
		return protocol.ChannelCategory
	default:
		return protocol.ChannelOther
	}
}

func fromChannelKind(k protocol.ChannelKind) discordgo.ChannelType {
	if k == protocol.ChannelCategory {
		return discordgo.ChannelTypeGuildCategory
	}
	return discordgo.ChannelTypeGuildText
}

func toOverwrite(ow *discordgo.PermissionOverwrite) protocol.Overwrite {
	kind := protocol.SubjectRole
	if ow.Type == discordgo.PermissionOverwriteTypeMember {
		kind = protocol.SubjectMember
	}
	return protocol.Overwrite{
		SubjectID: ow.ID,
		Kind:      kind,
		Allow:     protocol.Permissions(ow.Allow),
		Deny:      protocol.Permissions(ow.Deny),
	}
}

func fromOverwrite(ow protocol.Overwrite) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    ow.SubjectID,
		Type:  fromSubjectKind(ow.Kind),
		Allow: int64(ow.Allow),
		Deny:  int64(ow.Deny),
	}
}

func fromSubjectKind(k protocol.SubjectKind) discordgo.PermissionOverwriteType {
	if k == protocol.SubjectMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toActor(u *discordgo.User) protocol.Actor {
	if u == nil {
		return protocol.Actor{}
	}
	return protocol.Actor{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}
}

func toMessage(m *discordgo.Message) protocol.Message {
	msg := protocol.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    toActor(m.Author),
		Content:   m.ContentWithMentionsReplaced(),
		Timestamp: m.Timestamp,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	return msg
}

// Nil and empty slices are kept distinct: an empty slice clears the field
// on an update, nil leaves it unchanged.

func toEmbeds(in []protocol.Embed) []*discordgo.MessageEmbed {
	if in == nil {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		me := &discordgo.MessageEmbed{Title: e.Title, Description: e.Description}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, me)
	}
	return out
}

func toComponents(rows []protocol.ActionRow) []discordgo.MessageComponent {
	if rows == nil {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var ar discordgo.ActionsRow
		if row.Select != nil {
			menu := discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    row.Select.CustomID,
				Placeholder: row.Select.Placeholder,
			}
			for _, o := range row.Select.Options {
				menu.Options = append(menu.Options, discordgo.SelectMenuOption{
					Label:       o.Label,
					Value:       o.Value,
					Description: o.Description,
				})
			}
			ar.Components = append(ar.Components, menu)
		}
		for _, b := range row.Buttons {
			btn := discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    toButtonStyle(b.Style),
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			ar.Components = append(ar.Components, btn)
		}
		out = append(out, ar)
	}
	return out
}

func toButtonStyle(s protocol.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case protocol.ButtonSecondary:
		return discordgo.SecondaryButton
	case protocol.ButtonSuccess:
		return discordgo.SuccessButton
	case protocol.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func toFiles(f *protocol.File) []*discordgo.File {
	if f == nil {
		return nil
	}
	return []*discordgo.File{{
		Name:        f.Name,
		ContentType: f.ContentType,
		Reader:      bytes.NewReader(f.Data),
	}}
}

// toAllowedMentions maps a restriction list. A non-nil value with empty
// lists suppresses every ping.
func toAllowedMentions(m *protocol.AllowedMentions) *discordgo.MessageAllowedMentions {
	if m == nil {
		return nil
	}
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{},
		Users: m.Users,
		Roles: m.Roles,
	}
}

func flags(p protocol.Payload) discordgo.MessageFlags {
	if p.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func toMessageSend(p protocol.Payload) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         p.Content,
		Embeds:          toEmbeds(p.Embeds),
		Components:      toComponents(p.Components),
		Files:           toFiles(p.File),
		AllowedMentions: toAllowedMentions(p.Mentions),
	}
}

func toResponseData(p protocol.Payload) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:         p.Content,
		Embeds:          toEmbeds(p.Embeds),
		Components:      toComponents(p.Components),
		Files:           toFiles(p.File),
		AllowedMentions: toAllowedMentions(p.Mentions),
		Flags:           flags(p),
	}
}

func toWebhookEdit(p protocol.Payload) *discordgo.WebhookEdit {
	edit := &discordgo.WebhookEdit{
		Content:         &p.Content,
		Files:           toFiles(p.File),
		AllowedMentions: toAllowedMentions(p.Mentions),
	}
	if p.Embeds != nil {
		embeds := toEmbeds(p.Embeds)
		edit.Embeds = &embeds
	}
	if p.Components != nil {
		components := toComponents(p.Components)
		edit.Components = &components
	}
	return edit
}

func toWebhookParams(p protocol.Payload) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Content:         p.Content,
		Embeds:          toEmbeds(p.Embeds),
		Components:      toComponents(p.Components),
		Files:           toFiles(p.File),
		AllowedMentions: toAllowedMentions(p.Mentions),
		Flags:           flags(p),
	}
}

// toInteraction converts the events the bot handles. Pings, autocomplete
// and modal submits report false.
func toInteraction(i *discordgo.Interaction) (protocol.Interaction, bool) {
	in := protocol.Interaction{
		ID:        i.ID,
		ChannelID: i.ChannelID,
	}
	if i.Member != nil {
		in.Actor = toActor(i.Member.User)
		in.Permissions = protocol.Permissions(i.Member.Permissions)
	} else {
		in.Actor = toActor(i.User)
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Kind = protocol.InteractionCommand
		in.Command = data.Name
		in.Options = make(map[string]protocol.Option, len(data.Options))
		for _, opt := range data.Options {
			switch opt.Type {
			case discordgo.ApplicationCommandOptionUser:
				id, _ := opt.Value.(string)
				user := protocol.Actor{ID: id}
				if data.Resolved != nil {
					if u, ok := data.Resolved.Users[id]; ok {
						user = toActor(u)
					}
				}
				in.Options[opt.Name] = protocol.Option{User: &user}
			case discordgo.ApplicationCommandOptionString:
				in.Options[opt.Name] = protocol.Option{String: opt.StringValue()}
			}
		}
		return in, true

	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = protocol.InteractionComponent
		in.CustomID = data.CustomID
		in.Values = data.Values
		return in, true

	default:
		return in, false
	}
}

func toApplicationCommands(specs []protocol.CommandSpec) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		cmd := &discordgo.ApplicationCommand{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if spec.Permission != 0 {
			perm := int64(spec.Permission)
			cmd.DefaultMemberPermissions = &perm
		}
		for _, o := range spec.Options {
			optType := discordgo.ApplicationCommandOptionString
			if o.Kind == protocol.OptionUser {
				optType = discordgo.ApplicationCommandOptionUser
			}
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Type:        optType,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}
		out = append(out, cmd)
	}
	return out
}
