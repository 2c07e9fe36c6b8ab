package lifecycle

import "fmt"

// ChannelCreationError reports that a ticket channel or container could not be created.
type ChannelCreationError struct {
	Name string
	Err  error
}

func (e *ChannelCreationError) Error() string {
	return fmt.Sprintf("lifecycle: create channel %q: %v", e.Name, e.Err)
}

func (e *ChannelCreationError) Unwrap() error { return e.Err }

// PermissionEditError reports one overwrite edit that failed.
type PermissionEditError struct {
	ChannelID string
	SubjectID string
	Err       error
}

func (e *PermissionEditError) Error() string {
	return fmt.Sprintf("lifecycle: edit overwrite %s on %s: %v", e.SubjectID, e.ChannelID, e.Err)
}

func (e *PermissionEditError) Unwrap() error { return e.Err }
