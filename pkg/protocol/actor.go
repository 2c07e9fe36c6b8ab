package protocol

// Actor is a platform user identity.
type Actor struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
}

// Tag returns the display tag: "name#1234" for legacy discriminators,
// just the username when the discriminator is empty or "0".
func (a Actor) Tag() string {
	if a.Discriminator == "" || a.Discriminator == "0" {
		return a.Username
	}
	return a.Username + "#" + a.Discriminator
}

// Mention returns the platform mention markup for the actor.
func (a Actor) Mention() string {
	return "<@" + a.ID + ">"
}

// RoleMention returns the mention markup for a role id.
func RoleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

// ChannelMention returns the mention markup for a channel id.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}
