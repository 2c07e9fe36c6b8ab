// Package lifecycle creates, secures and locks ticket channels. It owns
// every permission-overwrite decision and the tickets container lookup.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/internal/flow"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// ContainerName is the name of the category created when none exists.
const ContainerName = "Tickets"

// Options configures a Manager.
type Options struct {
	SupportRoleID string
	ContainerID   string // optional configured category id
	Logger        *slog.Logger
}

// Manager owns ticket channels in one guild.
type Manager struct {
	guild     connector.Guild
	supportID string
	container string
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group

	mu       sync.RWMutex
	resolved string // last container returned by ResolveContainer
}

// New creates a Manager over guild.
func New(guild connector.Guild, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		guild:     guild,
		supportID: opts.SupportRoleID,
		container: opts.ContainerID,
		logger:    logger.With("component", "lifecycle"),
		now:       time.Now,
	}
}

// ResolveContainer returns the category that holds ticket channels,
// creating it on first use. Concurrent callers share one lookup.
func (m *Manager) ResolveContainer(ctx context.Context) (protocol.Channel, error) {
	v, err, _ := m.group.Do("container", func() (any, error) {
		return m.resolveContainer(ctx)
	})
	if err != nil {
		return protocol.Channel{}, err
	}
	ch := v.(protocol.Channel)
	m.mu.Lock()
	m.resolved = ch.ID
	m.mu.Unlock()
	return ch, nil
}

func (m *Manager) resolveContainer(ctx context.Context) (protocol.Channel, error) {
	channels, err := m.guild.Channels(ctx)
	if err != nil {
		return protocol.Channel{}, fmt.Errorf("lifecycle: list channels: %w", err)
	}

	if m.container != "" {
		for _, ch := range channels {
			if ch.ID == m.container && ch.Kind == protocol.ChannelCategory {
				return ch, nil
			}
		}
		m.logger.Warn("configured tickets category not usable, falling back to lookup", "category", m.container)
	}

	for _, ch := range channels {
		if ch.Kind == protocol.ChannelCategory && strings.EqualFold(ch.Name, "tickets") {
			return ch, nil
		}
	}

	created, err := m.guild.CreateChannel(ctx, protocol.ChannelSpec{
		Name: ContainerName,
		Kind: protocol.ChannelCategory,
		Overwrites: []protocol.Overwrite{
			{SubjectID: m.guild.EveryoneRoleID(), Kind: protocol.SubjectRole, Deny: protocol.PermViewChannel},
			{SubjectID: m.supportID, Kind: protocol.SubjectRole, Allow: protocol.PermViewChannel},
		},
	})
	if err != nil {
		return protocol.Channel{}, &ChannelCreationError{Name: ContainerName, Err: err}
	}
	m.logger.Info("created tickets category", "category", created.ID)
	return created, nil
}

// TicketOverwrites returns the overwrite set of a fresh ticket channel.
func (m *Manager) TicketOverwrites(openerID string) []protocol.Overwrite {
	return []protocol.Overwrite{
		{SubjectID: m.guild.EveryoneRoleID(), Kind: protocol.SubjectRole, Deny: protocol.PermViewChannel},
		{SubjectID: m.supportID, Kind: protocol.SubjectRole, Allow: protocol.PermTicketAccess},
		{SubjectID: openerID, Kind: protocol.SubjectMember, Allow: protocol.PermTicketAccess},
	}
}

// CreateTicketChannel creates the private channel for opener and posts the
// welcome message. A failed welcome is logged; the channel is still returned.
func (m *Manager) CreateTicketChannel(ctx context.Context, opener protocol.Actor) (protocol.Channel, error) {
	name := ChannelName(opener.Username, opener.ID)

	container, err := m.ResolveContainer(ctx)
	if err != nil {
		var cce *ChannelCreationError
		if errors.As(err, &cce) {
			return protocol.Channel{}, err
		}
		return protocol.Channel{}, &ChannelCreationError{Name: name, Err: err}
	}

	ch, err := m.guild.CreateChannel(ctx, protocol.ChannelSpec{
		Name:       name,
		Kind:       protocol.ChannelText,
		ParentID:   container.ID,
		Topic:      Topic(opener.Tag(), opener.ID),
		Overwrites: m.TicketOverwrites(opener.ID),
	})
	if err != nil {
		return protocol.Channel{}, &ChannelCreationError{Name: name, Err: err}
	}
	m.logger.Info("ticket channel created", "channel", ch.ID, "name", ch.Name, "opener", opener.ID)

	if _, err := m.guild.Send(ctx, ch.ID, m.welcome(opener)); err != nil {
		m.logger.Error("welcome message failed", "channel", ch.ID, "error", err)
	}
	return ch, nil
}

func (m *Manager) welcome(opener protocol.Actor) protocol.Payload {
	return protocol.Payload{
		Content: opener.Mention() + " " + protocol.RoleMention(m.supportID),
		Embeds: []protocol.Embed{{
			Title:       "Ticket created",
			Description: "Please describe your issue with as much detail as possible (what you tried, screenshots/logs, etc.). A staff member will be with you shortly.",
			Timestamp:   m.now(),
		}},
		Components: []protocol.ActionRow{{Buttons: []protocol.Button{{
			CustomID: flow.IDCloseTicket,
			Label:    "Close Ticket",
			Style:    protocol.ButtonDanger,
			Emoji:    "🔒",
		}}}},
		Mentions: &protocol.AllowedMentions{
			Users: []string{opener.ID},
			Roles: []string{m.supportID},
		},
	}
}

// Lock applies the close policy: every overwrite except the support
// group's denies send. Entries already locked are left alone, so repeated
// calls converge. Failed edits are returned together as PermissionEditErrors.
func (m *Manager) Lock(ctx context.Context, channelID string) error {
	ch, err := m.guild.Channel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("lifecycle: lock: fetch channel: %w", err)
	}

	var errs []error
	for _, ow := range ch.Overwrites {
		if ow.SubjectID == m.supportID {
			continue
		}
		locked := ow
		locked.Deny |= protocol.PermSendMessages
		locked.Allow &^= protocol.PermSendMessages
		if locked == ow {
			continue
		}
		if err := m.guild.EditOverwrite(ctx, channelID, locked); err != nil {
			m.logger.Warn("lock overwrite failed", "channel", channelID, "subject", ow.SubjectID, "error", err)
			errs = append(errs, &PermissionEditError{ChannelID: channelID, SubjectID: ow.SubjectID, Err: err})
		}
	}
	return errors.Join(errs...)
}

// LookupTicket fetches channelID and reports whether it sits in a tickets
// category: the configured or resolved container, or any category whose
// name contains "ticket" (any case).
func (m *Manager) LookupTicket(ctx context.Context, channelID string) (protocol.Channel, bool, error) {
	ch, err := m.guild.Channel(ctx, channelID)
	if err != nil {
		return protocol.Channel{}, false, fmt.Errorf("lifecycle: fetch channel: %w", err)
	}
	if ch.ParentID == "" {
		return ch, false, nil
	}
	parent, err := m.guild.Channel(ctx, ch.ParentID)
	if err != nil {
		return ch, false, fmt.Errorf("lifecycle: fetch parent: %w", err)
	}
	return ch, m.isContainer(parent), nil
}

func (m *Manager) isContainer(ch protocol.Channel) bool {
	if ch.Kind != protocol.ChannelCategory {
		return false
	}
	m.mu.RLock()
	resolved := m.resolved
	m.mu.RUnlock()
	if ch.ID == m.container || ch.ID == resolved {
		return true
	}
	return strings.Contains(strings.ToLower(ch.Name), "ticket")
}

// IsTicketChannel reports whether channelID is a ticket channel.
func (m *Manager) IsTicketChannel(ctx context.Context, channelID string) (bool, error) {
	_, ok, err := m.LookupTicket(ctx, channelID)
	return ok, err
}

// CanClose reports whether actor may close ch: staff with channel rights,
// or the opener recorded in the topic.
func CanClose(actor protocol.Actor, perms protocol.Permissions, ch protocol.Channel) bool {
	if perms.CanManageChannels() {
		return true
	}
	opener, ok := OpenerFromTopic(ch.Topic)
	return ok && opener == actor.ID
}
