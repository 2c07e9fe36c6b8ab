package protocol

// Permissions is a platform permission bitset.
type Permissions int64

// Permission bits, using the platform's numeric values.
const (
	PermAdministrator      Permissions = 1 << 3
	PermManageChannels     Permissions = 1 << 4
	PermManageGuild        Permissions = 1 << 5
	PermViewChannel        Permissions = 1 << 10
	PermSendMessages       Permissions = 1 << 11
	PermReadMessageHistory Permissions = 1 << 16
)

// PermTicketAccess is what an opener and the support group get on a fresh ticket.
const PermTicketAccess = PermViewChannel | PermSendMessages | PermReadMessageHistory

// Has reports whether every bit in want is set.
func (p Permissions) Has(want Permissions) bool {
	return p&want == want
}

// CanManageChannels reports staff-level channel rights.
func (p Permissions) CanManageChannels() bool {
	return p.Has(PermAdministrator) || p.Has(PermManageChannels)
}

// SubjectKind distinguishes role overwrites from member overwrites.
type SubjectKind int

const (
	SubjectRole SubjectKind = iota
	SubjectMember
)

// Overwrite is a per-subject allow/deny entry on a channel or category.
type Overwrite struct {
	SubjectID string      `json:"subject_id"`
	Kind      SubjectKind `json:"kind"`
	Allow     Permissions `json:"allow"`
	Deny      Permissions `json:"deny"`
}

// ChannelKind is the type of a guild channel.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelCategory
	ChannelOther
)

// Channel is a guild channel or category as seen by the bot.
type Channel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"kind"`
	ParentID   string      `json:"parent_id,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	Overwrites []Overwrite `json:"overwrites,omitempty"`
}

// Overwrite returns the entry for subjectID, if any.
func (c Channel) Overwrite(subjectID string) (Overwrite, bool) {
	for _, ow := range c.Overwrites {
		if ow.SubjectID == subjectID {
			return ow, true
		}
	}
	return Overwrite{}, false
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string
	Kind       ChannelKind
	ParentID   string
	Topic      string
	Overwrites []Overwrite
}
