package protocol

// OptionKind is the value type of a slash-command option.
type OptionKind int

const (
	OptionString OptionKind = iota + 1
	OptionUser
)

// CommandOption declares one slash-command option.
type CommandOption struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
}

// CommandSpec declares a slash command. Permission is the default member
// permission required to see and run it; zero means everyone.
type CommandSpec struct {
	Name        string
	Description string
	Permission  Permissions
	Options     []CommandOption
}
