package protocol

import "time"

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Footer      string
	Timestamp   time.Time // zero = no timestamp
}

// ButtonStyle is the colour/intent of a button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable control.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Emoji    string
}

// SelectOption is one choice in a SelectMenu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectMenu is a single-choice string menu.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// ActionRow holds either buttons or a single select menu.
type ActionRow struct {
	Buttons []Button
	Select  *SelectMenu
}
