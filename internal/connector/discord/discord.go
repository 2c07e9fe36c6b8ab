// Package discord connects the bot to a Discord guild through the gateway.
// It implements connector.Connector for the session, connector.Guild for
// REST calls and connector.Responder for interaction replies.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// Config holds Discord connector configuration.
type Config struct {
	Token    string // bot token, without the "Bot " prefix
	GuildID  string
	Commands []protocol.CommandSpec // registered on every start
}

const retryMaxElapsed = 2 * time.Minute

var (
	_ connector.Connector = (*Connector)(nil)
	_ connector.Guild     = (*Connector)(nil)
)

// Connector implements connector.Connector and connector.Guild for Discord.
type Connector struct {
	session   *discordgo.Session
	config    Config
	handler   connector.InteractionHandler
	logger    *slog.Logger
	connected atomic.Bool
	cancel    context.CancelFunc
	baseCtx   context.Context
}

// New creates a new Discord connector. The gateway is not opened until Start.
func New(cfg Config, handler connector.InteractionHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: init session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	if logger == nil {
		logger = slog.Default()
	}

	c := &Connector{
		session: session,
		config:  cfg,
		handler: handler,
		logger:  logger.With("component", "discord"),
		baseCtx: context.Background(),
	}
	session.AddHandler(c.onReady)
	session.AddHandler(c.onResumed)
	session.AddHandler(c.onDisconnect)
	session.AddHandler(c.onInteraction)
	return c, nil
}

func (c *Connector) Name() string { return "discord" }

// Connected reports whether the gateway session is up.
func (c *Connector) Connected() bool { return c.connected.Load() }

// Start opens the gateway, registers the slash commands and blocks until
// the context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.baseCtx = ctx

	err := retry(ctx, func() error {
		if err := c.session.Open(); err != nil {
			c.logger.Warn("gateway open failed, retrying", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	if err := c.registerCommands(ctx); err != nil {
		c.session.Close()
		return err
	}

	c.logger.Info("discord connector started", "guild", c.config.GuildID)
	<-ctx.Done()

	c.connected.Store(false)
	if err := c.session.Close(); err != nil {
		c.logger.Warn("gateway close failed", "error", err)
	}
	c.logger.Info("discord connector stopped")
	return ctx.Err()
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) registerCommands(ctx context.Context) error {
	if c.session.State == nil || c.session.State.User == nil {
		return errors.New("discord: register commands: no application identity after open")
	}
	appID := c.session.State.User.ID
	cmds := toApplicationCommands(c.config.Commands)

	err := retry(ctx, func() error {
		_, err := c.session.ApplicationCommandBulkOverwrite(appID, c.config.GuildID, cmds, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	c.logger.Info("slash commands registered", "count", len(cmds))
	return nil
}

// --- Gateway events ---

func (c *Connector) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.connected.Store(true)
	c.logger.Info("gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (c *Connector) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	c.connected.Store(true)
	c.logger.Info("gateway resumed")
}

func (c *Connector) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	c.connected.Store(false)
	c.logger.Warn("gateway disconnected")
}

func (c *Connector) onInteraction(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
	if ev.GuildID != c.config.GuildID {
		return
	}
	in, ok := toInteraction(ev.Interaction)
	if !ok {
		return
	}

	r := &responder{session: c.session, interaction: ev.Interaction}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				c.logger.Error("panic in interaction goroutine", "interaction", in.ID, "panic", p, "stack", string(debug.Stack()))
			}
		}()
		c.handler(c.baseCtx, in, r)
	}()
}

// --- connector.Guild ---

// EveryoneRoleID returns the guild id, which doubles as the @everyone role.
func (c *Connector) EveryoneRoleID() string { return c.config.GuildID }

func (c *Connector) Channels(ctx context.Context) ([]protocol.Channel, error) {
	chs, err := c.session.GuildChannels(c.config.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: list channels: %w", err)
	}
	out := make([]protocol.Channel, 0, len(chs))
	for _, ch := range chs {
		out = append(out, toChannel(ch))
	}
	return out, nil
}

func (c *Connector) Channel(ctx context.Context, id string) (protocol.Channel, error) {
	ch, err := c.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return protocol.Channel{}, fmt.Errorf("discord: fetch channel %s: %w", id, err)
	}
	return toChannel(ch), nil
}

func (c *Connector) CreateChannel(ctx context.Context, spec protocol.ChannelSpec) (protocol.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     fromChannelKind(spec.Kind),
		Topic:    spec.Topic,
		ParentID: spec.ParentID,
	}
	for _, ow := range spec.Overwrites {
		data.PermissionOverwrites = append(data.PermissionOverwrites, fromOverwrite(ow))
	}
	ch, err := c.session.GuildChannelCreateComplex(c.config.GuildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return protocol.Channel{}, fmt.Errorf("discord: create channel %q: %w", spec.Name, err)
	}
	return toChannel(ch), nil
}

func (c *Connector) EditOverwrite(ctx context.Context, channelID string, ow protocol.Overwrite) error {
	err := c.session.ChannelPermissionSet(channelID, ow.SubjectID, fromSubjectKind(ow.Kind),
		int64(ow.Allow), int64(ow.Deny), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: edit overwrite %s on %s: %w", ow.SubjectID, channelID, err)
	}
	return nil
}

func (c *Connector) Messages(ctx context.Context, channelID string, limit int) ([]protocol.Message, error) {
	if limit <= 0 || limit > maxMessagesPerFetch {
		limit = maxMessagesPerFetch
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: fetch messages from %s: %w", channelID, err)
	}
	out := make([]protocol.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessage(m))
	}
	return out, nil
}

func (c *Connector) Send(ctx context.Context, channelID string, p protocol.Payload) (protocol.Message, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(p), discordgo.WithContext(ctx))
	if err != nil {
		return protocol.Message{}, fmt.Errorf("discord: send to %s: %w", channelID, err)
	}
	return toMessage(m), nil
}

// retry runs op with exponential backoff. Client errors other than rate
// limits are not retried.
func retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func retryable(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		code := rest.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}
