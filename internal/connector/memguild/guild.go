// Package memguild is an in-memory connector.Guild and connector.Responder
// for tests. It keeps channels, overwrites and message history in maps and
// supports per-operation failure injection.
package memguild

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// Operation names used for call counting and failure injection.
const (
	OpChannels      = "channels"
	OpChannel       = "channel"
	OpCreateChannel = "create_channel"
	OpEditOverwrite = "edit_overwrite"
	OpMessages      = "messages"
	OpSend          = "send"
)

// ErrNotFound is returned for unknown channel ids.
var ErrNotFound = errors.New("memguild: not found")

// Sent is one message posted through Send.
type Sent struct {
	ChannelID string
	Payload   protocol.Payload
}

// Guild is a fake guild. The zero value is not usable; call New.
type Guild struct {
	mu       sync.Mutex
	everyone string
	seq      int
	channels map[string]*protocol.Channel
	order    []string
	history  map[string][]protocol.Message // oldest first
	sent     []Sent
	calls    map[string]int
	fail     map[string]error
	failOW   map[string]error // subjectID → error
	failSend map[string]error // channelID → error
}

// New creates an empty guild whose everyone role id is guildID.
func New(guildID string) *Guild {
	return &Guild{
		everyone: guildID,
		channels: make(map[string]*protocol.Channel),
		history:  make(map[string][]protocol.Message),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
		failOW:   make(map[string]error),
		failSend: make(map[string]error),
	}
}

// Fail makes every subsequent call to op return err. A nil err clears it.
func (g *Guild) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.fail, op)
		return
	}
	g.fail[op] = err
}

// FailOverwrite makes EditOverwrite fail for one subject.
func (g *Guild) FailOverwrite(subjectID string, err error) {
	g.mu.Lock()
	g.failOW[subjectID] = err
	g.mu.Unlock()
}

// FailSend makes Send fail for one channel.
func (g *Guild) FailSend(channelID string, err error) {
	g.mu.Lock()
	g.failSend[channelID] = err
	g.mu.Unlock()
}

// Calls returns how many times op was invoked.
func (g *Guild) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// AddChannel seeds a channel. An empty ID is assigned.
func (g *Guild) AddChannel(ch protocol.Channel) protocol.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch.ID == "" {
		ch.ID = g.nextIDLocked()
	}
	g.putLocked(ch)
	return ch
}

// AddMessage appends a message to a channel's history.
func (g *Guild) AddMessage(channelID string, m protocol.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m.ID == "" {
		m.ID = g.nextIDLocked()
	}
	m.ChannelID = channelID
	g.history[channelID] = append(g.history[channelID], m)
}

// Snapshot returns the stored channel without counting a call.
func (g *Guild) Snapshot(id string) (protocol.Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[id]
	if !ok {
		return protocol.Channel{}, false
	}
	return cloneChannel(*ch), true
}

// ChannelsByKind returns every stored channel of kind, in creation order.
func (g *Guild) ChannelsByKind(kind protocol.ChannelKind) []protocol.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []protocol.Channel
	for _, id := range g.order {
		if ch := g.channels[id]; ch.Kind == kind {
			out = append(out, cloneChannel(*ch))
		}
	}
	return out
}

// SentTo returns the payloads sent to channelID, in order.
func (g *Guild) SentTo(channelID string) []protocol.Payload {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []protocol.Payload
	for _, s := range g.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Payload)
		}
	}
	return out
}

func (g *Guild) EveryoneRoleID() string { return g.everyone }

func (g *Guild) Channels(ctx context.Context) ([]protocol.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpChannels); err != nil {
		return nil, err
	}
	out := make([]protocol.Channel, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, cloneChannel(*g.channels[id]))
	}
	return out, nil
}

func (g *Guild) Channel(ctx context.Context, id string) (protocol.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpChannel); err != nil {
		return protocol.Channel{}, err
	}
	ch, ok := g.channels[id]
	if !ok {
		return protocol.Channel{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return cloneChannel(*ch), nil
}

func (g *Guild) CreateChannel(ctx context.Context, spec protocol.ChannelSpec) (protocol.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpCreateChannel); err != nil {
		return protocol.Channel{}, err
	}
	if spec.ParentID != "" {
		if _, ok := g.channels[spec.ParentID]; !ok {
			return protocol.Channel{}, fmt.Errorf("parent %s: %w", spec.ParentID, ErrNotFound)
		}
	}
	ch := protocol.Channel{
		ID:         g.nextIDLocked(),
		Name:       spec.Name,
		Kind:       spec.Kind,
		ParentID:   spec.ParentID,
		Topic:      spec.Topic,
		Overwrites: append([]protocol.Overwrite(nil), spec.Overwrites...),
	}
	g.putLocked(ch)
	return cloneChannel(ch), nil
}

func (g *Guild) EditOverwrite(ctx context.Context, channelID string, ow protocol.Overwrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpEditOverwrite); err != nil {
		return err
	}
	if err := g.failOW[ow.SubjectID]; err != nil {
		return err
	}
	ch, ok := g.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	for i := range ch.Overwrites {
		if ch.Overwrites[i].SubjectID == ow.SubjectID {
			ch.Overwrites[i] = ow
			return nil
		}
	}
	ch.Overwrites = append(ch.Overwrites, ow)
	return nil
}

func (g *Guild) Messages(ctx context.Context, channelID string, limit int) ([]protocol.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpMessages); err != nil {
		return nil, err
	}
	if _, ok := g.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	h := g.history[channelID]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]protocol.Message, 0, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out = append(out, h[i])
	}
	return out, nil
}

func (g *Guild) Send(ctx context.Context, channelID string, p protocol.Payload) (protocol.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enterLocked(ctx, OpSend); err != nil {
		return protocol.Message{}, err
	}
	if err := g.failSend[channelID]; err != nil {
		return protocol.Message{}, err
	}
	if _, ok := g.channels[channelID]; !ok {
		return protocol.Message{}, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	g.sent = append(g.sent, Sent{ChannelID: channelID, Payload: p})
	return protocol.Message{
		ID:        g.nextIDLocked(),
		ChannelID: channelID,
		Content:   p.Content,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (g *Guild) enterLocked(ctx context.Context, op string) error {
	g.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.fail[op]
}

func (g *Guild) putLocked(ch protocol.Channel) {
	if _, exists := g.channels[ch.ID]; !exists {
		g.order = append(g.order, ch.ID)
	}
	c := cloneChannel(ch)
	g.channels[ch.ID] = &c
}

func (g *Guild) nextIDLocked() string {
	g.seq++
	return strconv.Itoa(1000 + g.seq)
}

func cloneChannel(ch protocol.Channel) protocol.Channel {
	ch.Overwrites = append([]protocol.Overwrite(nil), ch.Overwrites...)
	return ch
}
