package ticket

import (
	"errors"
	"time"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// ErrNotFound is returned when no ledger record matches a channel id.
var ErrNotFound = errors.New("ticket: not found")

// Store is the ledger of ticket channels opened by this process.
type Store interface {
	// Record inserts a freshly opened ticket.
	Record(ticket *protocol.Ticket) error
	// Get retrieves a ticket by channel ID.
	Get(channelID string) (*protocol.Ticket, error)
	// List returns tickets matching the filter, newest first.
	List(filter Filter) ([]*protocol.Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(filter Filter) (int, error)
	// MarkClosed records the close of a ticket. Closing twice keeps the first close.
	MarkClosed(channelID, closedBy string, transcriptLines int, at time.Time) error
}

// Filter constrains ticket list queries.
type Filter struct {
	Status   *protocol.TicketStatus
	OpenerID string
	Path     string
	Limit    int // 0 = no limit
}
