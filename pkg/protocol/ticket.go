package protocol

import "time"

// TicketStatus represents the lifecycle state of a ticket channel.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is the ledger record for a ticket channel opened by this process.
type Ticket struct {
	ChannelID       string       `json:"channel_id"`
	Name            string       `json:"name"`
	OpenerID        string       `json:"opener_id"`
	OpenerTag       string       `json:"opener_tag"`
	Path            string       `json:"path"` // support category chosen in the flow
	Status          TicketStatus `json:"status"`
	OpenedAt        time.Time    `json:"opened_at"`
	ClosedAt        *time.Time   `json:"closed_at,omitempty"`
	ClosedBy        string       `json:"closed_by,omitempty"`
	TranscriptLines int          `json:"transcript_lines,omitempty"`
}
