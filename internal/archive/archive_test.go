package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marti95432/discordbot/internal/connector/memguild"
	"github.com/marti95432/discordbot/internal/lifecycle"
	"github.com/marti95432/discordbot/pkg/protocol"
)

const (
	guildID   = "900"
	supportID = "777"
	logID     = "log-1"
)

type fixture struct {
	guild   *memguild.Guild
	manager *lifecycle.Manager
	arch    *Archiver
	ticket  protocol.Channel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := memguild.New(guildID)
	g.AddChannel(protocol.Channel{ID: logID, Name: "audit-log"})
	m := lifecycle.New(g, lifecycle.Options{SupportRoleID: supportID})
	ch, err := m.CreateTicketChannel(context.Background(), alice)
	require.NoError(t, err)
	return &fixture{
		guild:   g,
		manager: m,
		arch:    New(g, m, Options{LogChannelID: logID}),
		ticket:  ch,
	}
}

func TestArchive_CountsMessagesNotTextLines(t *testing.T) {
	f := newFixture(t)
	f.guild.AddMessage(f.ticket.ID, protocol.Message{Author: alice, Content: "line one\nline two\nline three", Timestamp: t0})

	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	require.NoError(t, rep.Err())
	assert.Equal(t, 1, rep.Lines)
}

func TestArchive_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.guild.AddMessage(f.ticket.ID, protocol.Message{Author: alice, Content: "help", Timestamp: t0})
	f.guild.AddMessage(f.ticket.ID, protocol.Message{Author: bob, Content: "on it", Timestamp: t0.Add(time.Second)})

	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	require.NoError(t, rep.Err())
	assert.Equal(t, 2, rep.Lines)

	steps := make([]string, len(rep.Steps))
	for i, s := range rep.Steps {
		steps[i] = s.Step
	}
	assert.Equal(t, []string{StepFetch, StepRender, StepDeliver, StepLock, StepNotice}, steps)

	logged := f.guild.SentTo(logID)
	require.Len(t, logged, 1)
	assert.Equal(t, "🗂️ Ticket **ticket-alice** closed by <@222>", logged[0].Content)
	require.NotNil(t, logged[0].File)
	assert.Equal(t, "ticket-alice-transcript.txt", logged[0].File.Name)
	assert.Contains(t, string(logged[0].File.Data), "] alice (111): help\n[")

	inTicket := f.guild.SentTo(f.ticket.ID)
	assert.Equal(t, ClosedNotice, inTicket[len(inTicket)-1].Content)

	locked, _ := f.guild.Snapshot(f.ticket.ID)
	for _, ow := range locked.Overwrites {
		if ow.SubjectID != supportID {
			assert.True(t, ow.Deny.Has(protocol.PermSendMessages), ow.SubjectID)
		}
	}
}

func TestArchive_EmptyChannel(t *testing.T) {
	f := newFixture(t)
	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	require.NoError(t, rep.Err())
	assert.Zero(t, rep.Lines)
	assert.Equal(t, EmptyTranscript, string(f.guild.SentTo(logID)[0].File.Data))
}

func TestArchive_FetchFailureStillDeliversNotice(t *testing.T) {
	f := newFixture(t)
	f.guild.Fail(memguild.OpMessages, errors.New("missing access"))

	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	assert.True(t, rep.Failed(StepFetch))
	assert.False(t, rep.Failed(StepDeliver))
	assert.False(t, rep.Failed(StepLock))
	assert.False(t, rep.Failed(StepNotice))

	logged := f.guild.SentTo(logID)
	require.Len(t, logged, 1)
	assert.Nil(t, logged[0].File, "no artifact without history")
}

func TestArchive_DeliveryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.guild.FailSend(logID, errors.New("log channel gone"))

	rep := f.arch.Archive(context.Background(), f.ticket, bob)

	var tde *TranscriptDeliveryError
	require.True(t, errors.As(rep.Err(), &tde))
	assert.Equal(t, logID, tde.LogChannelID)
	assert.False(t, rep.Failed(StepLock))
	assert.False(t, rep.Failed(StepNotice))
}

func TestArchive_LockFailureReportedNoticeStillSent(t *testing.T) {
	f := newFixture(t)
	f.guild.FailOverwrite(alice.ID, errors.New("forbidden"))

	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	assert.True(t, rep.Failed(StepLock))

	var pe *lifecycle.PermissionEditError
	assert.True(t, errors.As(rep.Err(), &pe))
	inTicket := f.guild.SentTo(f.ticket.ID)
	assert.Equal(t, ClosedNotice, inTicket[len(inTicket)-1].Content)
}

func TestArchive_HistoryLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < HistoryLimit+20; i++ {
		f.guild.AddMessage(f.ticket.ID, protocol.Message{
			Author:    alice,
			Content:   fmt.Sprintf("m%d", i),
			Timestamp: t0.Add(time.Duration(i) * time.Second),
		})
	}

	rep := f.arch.Archive(context.Background(), f.ticket, bob)
	require.NoError(t, rep.Err())
	assert.Equal(t, HistoryLimit, rep.Lines)
	body := string(f.guild.SentTo(logID)[0].File.Data)
	assert.NotContains(t, body, "): m19\n")
	assert.Contains(t, body, "): m20\n")
}

type panicLocker struct{}

func (panicLocker) Lock(context.Context, string) error { panic("boom") }

func TestArchive_StepPanicIsContained(t *testing.T) {
	f := newFixture(t)
	a := New(f.guild, panicLocker{}, Options{LogChannelID: logID})

	rep := a.Archive(context.Background(), f.ticket, bob)
	assert.True(t, rep.Failed(StepLock))
	assert.False(t, rep.Failed(StepNotice))
}
