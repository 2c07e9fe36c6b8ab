package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marti95432/discordbot/pkg/protocol"
)

var (
	t0    = time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	alice = protocol.Actor{ID: "111", Username: "alice", Discriminator: "0"}
	bob   = protocol.Actor{ID: "222", Username: "bob", Discriminator: "4821"}
)

func TestRenderTranscript_Empty(t *testing.T) {
	assert.Equal(t, "No messages.", RenderTranscript(nil))
}

func TestRenderTranscript_FormatAndOrder(t *testing.T) {
	msgs := []protocol.Message{
		{Author: bob, Content: "second", Timestamp: t0.Add(time.Minute)},
		{Author: alice, Content: "first", Timestamp: t0, Attachments: []string{"https://cdn/a.png", "https://cdn/b.log"}},
	}
	want := "[2024-05-06T07:08:09.123Z] alice (111): first [attachments: https://cdn/a.png, https://cdn/b.log]\n" +
		"[2024-05-06T07:09:09.123Z] bob#4821 (222): second"
	assert.Equal(t, want, RenderTranscript(msgs))
}

func TestRenderTranscript_ConvertsToUTC(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	msgs := []protocol.Message{{Author: alice, Content: "hi", Timestamp: t0.In(berlin)}}
	assert.Equal(t, "[2024-05-06T07:08:09.123Z] alice (111): hi", RenderTranscript(msgs))
}

func TestRenderTranscript_StableOnTies(t *testing.T) {
	msgs := []protocol.Message{
		{Author: alice, Content: "a", Timestamp: t0},
		{Author: alice, Content: "b", Timestamp: t0},
		{Author: alice, Content: "c", Timestamp: t0},
	}
	want := "[2024-05-06T07:08:09.123Z] alice (111): a\n" +
		"[2024-05-06T07:08:09.123Z] alice (111): b\n" +
		"[2024-05-06T07:08:09.123Z] alice (111): c"
	assert.Equal(t, want, RenderTranscript(msgs))
}

func TestRenderTranscript_DoesNotMutateInput(t *testing.T) {
	msgs := []protocol.Message{
		{Content: "late", Timestamp: t0.Add(time.Hour)},
		{Content: "early", Timestamp: t0},
	}
	RenderTranscript(msgs)
	assert.Equal(t, "late", msgs[0].Content)
}
