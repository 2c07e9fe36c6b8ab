package protocol

// InteractionKind separates slash commands from component presses.
type InteractionKind int

const (
	InteractionCommand InteractionKind = iota + 1
	InteractionComponent
)

func (k InteractionKind) String() string {
	switch k {
	case InteractionCommand:
		return "command"
	case InteractionComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Option is a typed slash-command option value.
type Option struct {
	User   *Actor
	String string
}

// Interaction is one inbound user action delivered by the platform.
type Interaction struct {
	ID          string
	Kind        InteractionKind
	Actor       Actor
	Permissions Permissions // actor's resolved permissions in the invoking channel
	ChannelID   string

	// Command interactions
	Command string
	Options map[string]Option

	// Component interactions
	CustomID string
	Values   []string
}

// UserOption returns the named user option.
func (i Interaction) UserOption(name string) (Actor, bool) {
	opt, ok := i.Options[name]
	if !ok || opt.User == nil {
		return Actor{}, false
	}
	return *opt.User, true
}

// StringOption returns the named string option, or "" if absent.
func (i Interaction) StringOption(name string) string {
	return i.Options[name].String
}
