// Package archive captures a ticket channel's recent history into a
// transcript, posts it to the audit log and applies the close policy.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/internal/metrics"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// HistoryLimit is how many of the most recent messages a transcript covers.
const HistoryLimit = 100

// ClosedNotice is posted in the ticket channel once it is locked.
const ClosedNotice = "🔒 Ticket closed. Transcript saved to logs."

// Step names, in execution order.
const (
	StepFetch   = "fetch"
	StepRender  = "render"
	StepDeliver = "deliver"
	StepLock    = "lock"
	StepNotice  = "notice"
)

// TranscriptDeliveryError reports that the audit-log post failed.
type TranscriptDeliveryError struct {
	LogChannelID string
	Err          error
}

func (e *TranscriptDeliveryError) Error() string {
	return fmt.Sprintf("archive: deliver transcript to %s: %v", e.LogChannelID, e.Err)
}

func (e *TranscriptDeliveryError) Unwrap() error { return e.Err }

// Locker applies the close permission policy to a channel.
type Locker interface {
	Lock(ctx context.Context, channelID string) error
}

// StepResult is the outcome of one archive step.
type StepResult struct {
	Step string
	Err  error
}

// Report is the per-step outcome of one Archive call.
type Report struct {
	ChannelID string
	Steps     []StepResult
	Lines     int // messages written to the transcript; 0 when fetch failed or the channel was empty
}

// Err joins every step failure, or nil when all steps succeeded.
func (r Report) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed reports whether the named step failed.
func (r Report) Failed(step string) bool {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Err != nil
		}
	}
	return false
}

// Options configures an Archiver.
type Options struct {
	LogChannelID string
	Logger       *slog.Logger
}

// Archiver closes ticket channels.
type Archiver struct {
	guild  connector.Guild
	locker Locker
	logCh  string
	logger *slog.Logger
}

// New creates an Archiver.
func New(guild connector.Guild, locker Locker, opts Options) *Archiver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		guild:  guild,
		locker: locker,
		logCh:  opts.LogChannelID,
		logger: logger.With("component", "archive"),
	}
}

// Archive runs fetch, render, deliver, lock and notice against ch. A failed
// step never prevents the later ones; deliver, lock and notice always run.
func (a *Archiver) Archive(ctx context.Context, ch protocol.Channel, closedBy protocol.Actor) Report {
	rep := Report{ChannelID: ch.ID}
	logger := a.logger.With("channel", ch.ID, "closed_by", closedBy.ID)

	var msgs []protocol.Message
	fetched := a.run(&rep, logger, StepFetch, func() error {
		var err error
		msgs, err = a.guild.Messages(ctx, ch.ID, HistoryLimit)
		if err != nil {
			return fmt.Errorf("archive: fetch history: %w", err)
		}
		return nil
	})

	var file *protocol.File
	if fetched {
		a.run(&rep, logger, StepRender, func() error {
			body := RenderTranscript(msgs)
			rep.Lines = len(msgs)
			file = &protocol.File{
				Name:        ch.Name + "-transcript.txt",
				ContentType: "text/plain; charset=utf-8",
				Data:        []byte(body),
			}
			return nil
		})
	}

	a.run(&rep, logger, StepDeliver, func() error {
		_, err := a.guild.Send(ctx, a.logCh, protocol.Payload{
			Content:  fmt.Sprintf("🗂️ Ticket **%s** closed by %s", ch.Name, closedBy.Mention()),
			File:     file,
			Mentions: &protocol.AllowedMentions{},
		})
		if err != nil {
			return &TranscriptDeliveryError{LogChannelID: a.logCh, Err: err}
		}
		return nil
	})

	a.run(&rep, logger, StepLock, func() error {
		return a.locker.Lock(ctx, ch.ID)
	})

	a.run(&rep, logger, StepNotice, func() error {
		if _, err := a.guild.Send(ctx, ch.ID, protocol.Payload{Content: ClosedNotice}); err != nil {
			return fmt.Errorf("archive: closed notice: %w", err)
		}
		return nil
	})

	if err := rep.Err(); err != nil {
		logger.Warn("ticket archived with failures", "error", err)
	} else {
		logger.Info("ticket archived", "lines", rep.Lines)
	}
	return rep
}

// run executes one step, recovering panics, and records its result.
func (a *Archiver) run(rep *Report, logger *slog.Logger, step string, fn func() error) (ok bool) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("archive: %s panicked: %v", step, r)
			}
		}()
		err = fn()
	}()

	rep.Steps = append(rep.Steps, StepResult{Step: step, Err: err})
	if err != nil {
		metrics.ArchiveStepFailures.WithLabelValues(step).Inc()
		logger.Error("archive step failed", "step", step, "error", err)
		return false
	}
	return true
}
