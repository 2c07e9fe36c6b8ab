// Package dispatch routes inbound interactions: slash commands to their
// handlers, and component presses through the flow state machine to the
// lifecycle manager and archiver. Every interaction runs inside a failure
// boundary that recovers panics and always tells the user something.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marti95432/discordbot/internal/archive"
	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/internal/flow"
	"github.com/marti95432/discordbot/internal/lifecycle"
	"github.com/marti95432/discordbot/internal/metrics"
	"github.com/marti95432/discordbot/internal/telemetry"
	"github.com/marti95432/discordbot/internal/ticket"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// Lifecycle is the subset of the channel lifecycle manager the dispatcher uses.
type Lifecycle interface {
	CreateTicketChannel(ctx context.Context, opener protocol.Actor) (protocol.Channel, error)
	LookupTicket(ctx context.Context, channelID string) (protocol.Channel, bool, error)
}

// Archiver closes a ticket channel.
type Archiver interface {
	Archive(ctx context.Context, ch protocol.Channel, closedBy protocol.Actor) archive.Report
}

// Deps are the collaborators of a Dispatcher. Ledger and Tracer are optional.
type Deps struct {
	Sessions  *flow.Store
	Lifecycle Lifecycle
	Archiver  Archiver
	Ledger    ticket.Store
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Options holds the user-facing settings.
type Options struct {
	FAQChannelID string
	ConnectLink  string
}

// Dispatcher handles interactions for one guild.
type Dispatcher struct {
	sessions  *flow.Store
	lifecycle Lifecycle
	archiver  Archiver
	ledger    ticket.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	render    renderer
	link      string
	now       func() time.Time
}

// New creates a Dispatcher.
func New(deps Deps, opts Options) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer("")
	}
	d := &Dispatcher{
		sessions:  deps.Sessions,
		lifecycle: deps.Lifecycle,
		archiver:  deps.Archiver,
		ledger:    deps.Ledger,
		logger:    logger.With("component", "dispatch"),
		tracer:    tracer,
		link:      opts.ConnectLink,
		now:       time.Now,
	}
	d.render = renderer{faqID: opts.FAQChannelID, now: func() time.Time { return d.now() }}
	return d
}

// Handle processes one interaction. It never panics and never returns an
// error: failures become an ephemeral notice plus a log entry.
func (d *Dispatcher) Handle(ctx context.Context, in protocol.Interaction, r connector.Responder) {
	start := time.Now()
	kind := in.Kind.String()
	logger := d.logger.With(
		"interaction", in.ID,
		"request", uuid.NewString(),
		"actor", in.Actor.ID,
		"kind", kind,
	)

	ctx, span := d.tracer.Start(ctx, "dispatch."+kind, trace.WithAttributes(
		attribute.String("interaction.id", in.ID),
		attribute.String("interaction.command", in.Command),
		attribute.String("interaction.custom_id", in.CustomID),
		attribute.String("actor.id", in.Actor.ID),
	))
	defer span.End()

	tr := &trackedResponder{inner: r}
	err := d.safeHandle(ctx, logger, in, tr)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, flow.ErrUnrecognizedAction):
		outcome = "unrecognized"
		logger.Info("unrecognized action", "custom_id", in.CustomID, "error", err)
		if nerr := tr.notify(ctx, ephemeral(textUnrecognized)); nerr != nil {
			logger.Warn("unrecognized notice failed", "error", nerr)
		}
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("interaction failed", "command", in.Command, "custom_id", in.CustomID, "error", err)
		if nerr := tr.notify(ctx, ephemeral(textFailure)); nerr != nil {
			logger.Warn("failure notice failed", "error", nerr)
		}
	}

	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordInteraction(kind, outcome, time.Since(start))
	logger.Debug("interaction handled", "outcome", outcome, "duration", time.Since(start))
}

func (d *Dispatcher) safeHandle(ctx context.Context, logger *slog.Logger, in protocol.Interaction, r *trackedResponder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic in interaction handler", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("dispatch: panic: %v", p)
		}
	}()

	switch in.Kind {
	case protocol.InteractionCommand:
		return d.handleCommand(ctx, logger, in, r)
	case protocol.InteractionComponent:
		return d.handleComponent(ctx, logger, in, r)
	default:
		return fmt.Errorf("dispatch: unsupported interaction kind %d", in.Kind)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, logger *slog.Logger, in protocol.Interaction, r *trackedResponder) error {
	switch in.Command {
	case CommandSetupTickets:
		if !in.Permissions.Has(protocol.PermManageGuild) && !in.Permissions.Has(protocol.PermAdministrator) {
			logger.Info("setup denied")
			return r.Reply(ctx, ephemeral(textSetupDenied))
		}
		return r.Reply(ctx, d.render.intro(in.Actor))

	case CommandConprob:
		user, ok := in.UserOption("user")
		if !ok {
			return fmt.Errorf("dispatch: conprob: missing user option")
		}
		link := in.StringOption("link")
		if link == "" {
			link = d.link
		}
		return r.Reply(ctx, d.render.conprob(user, link))

	case CommandFAQ:
		return r.Reply(ctx, d.render.faqPointer())

	case CommandClose:
		return d.closeTicket(ctx, logger, in, r, "command")

	default:
		return fmt.Errorf("dispatch: unknown command %q", in.Command)
	}
}

func (d *Dispatcher) handleComponent(ctx context.Context, logger *slog.Logger, in protocol.Interaction, r *trackedResponder) error {
	if base, _ := flow.SplitControlID(in.CustomID); base == flow.IDCloseTicket {
		return d.closeTicket(ctx, logger, in, r, "button")
	}

	action, flowID, err := flow.ParseAction(in.CustomID, in.Values)
	if err != nil {
		metrics.FlowUnrecognized.Inc()
		return err
	}

	t, sess, err := d.sessions.Step(in.Actor.ID, flowID, action)
	metrics.SessionsActive.Set(float64(d.sessions.Len()))
	if err != nil {
		metrics.FlowUnrecognized.Inc()
		return err
	}
	metrics.RecordTransition(string(t.From), string(t.Next))
	logger.Debug("flow transition", "flow", sess.ID, "from", t.From, "to", t.Next, "effect", t.Effect)

	switch t.Effect {
	case flow.EffectRenderFaqPrompt:
		// The open button lives on the shared panel, so the prompt is a fresh
		// ephemeral reply rather than an update of the panel.
		return r.Reply(ctx, d.render.faqPrompt(sess.ID))
	case flow.EffectRenderFaqRequired:
		return r.Update(ctx, d.render.faqRequired())
	case flow.EffectRenderCategoryPrompt:
		return r.Update(ctx, d.render.categoryPrompt(sess.ID))
	case flow.EffectRenderReportPrompt:
		return r.Update(ctx, d.render.reportPrompt(sess.ID))
	case flow.EffectRenderReportRequired:
		return r.Update(ctx, d.render.reportRequired())
	case flow.EffectCreateTicket:
		return d.createTicket(ctx, logger, in, sess, r)
	default:
		return fmt.Errorf("dispatch: unhandled effect %q", t.Effect)
	}
}

func (d *Dispatcher) createTicket(ctx context.Context, logger *slog.Logger, in protocol.Interaction, sess flow.Session, r *trackedResponder) error {
	if err := r.Update(ctx, d.render.creating()); err != nil {
		return fmt.Errorf("dispatch: creating notice: %w", err)
	}

	ch, err := d.lifecycle.CreateTicketChannel(ctx, in.Actor)
	if err != nil {
		return err
	}
	metrics.TicketsCreated.WithLabelValues(string(sess.Category)).Inc()
	logger.Info("ticket created", "channel", ch.ID, "name", ch.Name, "path", sess.Category, "flow", sess.ID)

	if d.ledger != nil {
		err := d.ledger.Record(&protocol.Ticket{
			ChannelID: ch.ID,
			Name:      ch.Name,
			OpenerID:  in.Actor.ID,
			OpenerTag: in.Actor.Tag(),
			Path:      string(sess.Category),
			Status:    protocol.TicketOpen,
			OpenedAt:  d.now(),
		})
		if err != nil {
			logger.Warn("ledger record failed", "channel", ch.ID, "error", err)
		}
	}

	return r.FollowUp(ctx, d.render.created(ch.ID))
}

func (d *Dispatcher) closeTicket(ctx context.Context, logger *slog.Logger, in protocol.Interaction, r *trackedResponder, trigger string) error {
	// Acknowledge before the channel lookups; every answer below is an edit.
	if err := r.Defer(ctx, true); err != nil {
		return fmt.Errorf("dispatch: defer close: %w", err)
	}

	ch, ok, err := d.lifecycle.LookupTicket(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	if !ok {
		return r.EditReply(ctx, protocol.Payload{Content: textNotTicket})
	}
	if !lifecycle.CanClose(in.Actor, in.Permissions, ch) {
		logger.Info("close denied", "channel", ch.ID)
		return r.EditReply(ctx, protocol.Payload{Content: textCloseDenied})
	}

	rep := d.archiver.Archive(ctx, ch, in.Actor)
	metrics.TicketsClosed.WithLabelValues(trigger).Inc()

	if d.ledger != nil {
		err := d.ledger.MarkClosed(ch.ID, in.Actor.ID, rep.Lines, d.now())
		switch {
		case errors.Is(err, ticket.ErrNotFound):
			logger.Debug("closed ticket predates this process", "channel", ch.ID)
		case err != nil:
			logger.Warn("ledger close failed", "channel", ch.ID, "error", err)
		}
	}

	text := textClosedButton
	if trigger == "command" {
		text = textClosedCommand
	}
	return r.EditReply(ctx, protocol.Payload{Content: text})
}

// SweepSessions evicts expired flow sessions and refreshes the gauge.
func (d *Dispatcher) SweepSessions() int {
	n := d.sessions.Sweep()
	metrics.SessionsActive.Set(float64(d.sessions.Len()))
	if n > 0 {
		d.logger.Debug("expired flow sessions swept", "count", n)
	}
	return n
}

// ActiveSessions returns the number of live flow sessions.
func (d *Dispatcher) ActiveSessions() int {
	return d.sessions.Len()
}
