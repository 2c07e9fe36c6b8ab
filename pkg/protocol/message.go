package protocol

import "time"

// Message is a channel message as fetched from the platform.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Author      Actor     `json:"author"`
	Content     string    `json:"content"` // mentions already resolved to readable names
	Timestamp   time.Time `json:"timestamp"`
	Attachments []string  `json:"attachments,omitempty"` // attachment URLs
}

// File is an attachment uploaded with an outbound payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// AllowedMentions restricts which mentions in a payload actually ping.
// A nil *AllowedMentions means platform defaults.
type AllowedMentions struct {
	Users []string
	Roles []string
}

// Payload is an outbound message body, used for channel sends and for
// interaction replies, updates and follow-ups alike.
type Payload struct {
	Content    string
	Embeds     []Embed
	Components []ActionRow
	File       *File
	Ephemeral  bool
	Mentions   *AllowedMentions
}
