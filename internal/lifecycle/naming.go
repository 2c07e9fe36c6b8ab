package lifecycle

import "strings"

const (
	channelPrefix  = "ticket-"
	maxChannelName = 100
	topicMarker    = "opener:"
)

// ChannelName derives the ticket channel name from the opener's username:
// lowercased, with everything outside [a-z0-9-] removed. A username that
// sanitizes to nothing falls back to fallback (the opener id).
func ChannelName(username, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = fallback
	}
	name = channelPrefix + name
	if len(name) > maxChannelName {
		name = name[:maxChannelName]
	}
	return name
}

// Topic renders the ticket channel topic with the opener metadata.
func Topic(tag, openerID string) string {
	return "Support ticket for " + tag + " | " + topicMarker + openerID
}

// OpenerFromTopic extracts the opener id recorded by Topic.
func OpenerFromTopic(topic string) (string, bool) {
	i := strings.LastIndex(topic, topicMarker)
	if i < 0 {
		return "", false
	}
	id := topic[i+len(topicMarker):]
	if j := strings.IndexAny(id, " |\n"); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return "", false
	}
	return id, true
}
