package archive

import (
	"slices"
	"strings"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// EmptyTranscript is the artifact body when the channel has no messages.
const EmptyTranscript = "No messages."

// RenderTranscript renders msgs oldest first, one line per message.
// The input order is irrelevant; ties keep their relative order.
func RenderTranscript(msgs []protocol.Message) string {
	if len(msgs) == 0 {
		return EmptyTranscript
	}
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, func(a, b protocol.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	lines := make([]string, len(sorted))
	for i, m := range sorted {
		lines[i] = renderLine(m)
	}
	return strings.Join(lines, "\n")
}

func renderLine(m protocol.Message) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(m.Timestamp.UTC().Format(TimestampFormat))
	b.WriteString("] ")
	b.WriteString(m.Author.Tag())
	b.WriteString(" (")
	b.WriteString(m.Author.ID)
	b.WriteString("): ")
	b.WriteString(m.Content)
	if len(m.Attachments) > 0 {
		b.WriteString(" [attachments: ")
		b.WriteString(strings.Join(m.Attachments, ", "))
		b.WriteString("]")
	}
	return b.String()
}
