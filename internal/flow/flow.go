// Package flow is the ticket-opening decision tree: a pure transition
// function over a fixed set of steps, plus the per-actor session store that
// remembers which step each actor is on.
package flow

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedAction is returned for any action that the current step
// does not accept.
var ErrUnrecognizedAction = errors.New("flow: unrecognized action")

// State is one step of the decision tree.
type State string

const (
	Idle                             State = "idle"
	AwaitingFaqConfirmation          State = "awaiting_faq_confirmation"
	AwaitingSupportCategory          State = "awaiting_support_category"
	AwaitingInGameReportConfirmation State = "awaiting_ingame_report_confirmation"
	TicketCreated                    State = "ticket_created"
	Aborted                          State = "aborted"
)

// Terminal reports whether the flow instance ends in this state.
func (s State) Terminal() bool {
	return s == TicketCreated || s == Aborted
}

// Category is the support type picked in the chooser.
type Category string

const (
	CategoryInGame Category = "ingame"
	CategoryOther  Category = "other"
)

// ActionKind identifies what the actor did.
type ActionKind string

const (
	ActionOpenTicket ActionKind = "open_ticket"
	ActionFaqYes     ActionKind = "faq_yes"
	ActionFaqNo      ActionKind = "faq_no"
	ActionCategory   ActionKind = "category"
	ActionReportYes  ActionKind = "report_yes"
	ActionReportNo   ActionKind = "report_no"
)

// Action is a user input to the state machine.
type Action struct {
	Kind     ActionKind
	Category Category // only for ActionCategory
}

func (a Action) String() string {
	if a.Kind == ActionCategory {
		return fmt.Sprintf("%s=%s", a.Kind, a.Category)
	}
	return string(a.Kind)
}

// Effect is what the dispatcher must do after a transition.
type Effect string

const (
	EffectRenderFaqPrompt      Effect = "render_faq_prompt"
	EffectRenderFaqRequired    Effect = "render_faq_required"
	EffectRenderCategoryPrompt Effect = "render_category_prompt"
	EffectRenderReportPrompt   Effect = "render_report_prompt"
	EffectRenderReportRequired Effect = "render_report_required"
	EffectCreateTicket         Effect = "create_ticket"
)

// Transition is the outcome of applying an Action.
type Transition struct {
	From   State
	Next   State
	Effect Effect
}

type edge struct {
	state  State
	action Action
}

var table = map[edge]Transition{
	{AwaitingFaqConfirmation, Action{Kind: ActionFaqNo}}:  {Next: Aborted, Effect: EffectRenderFaqRequired},
	{AwaitingFaqConfirmation, Action{Kind: ActionFaqYes}}: {Next: AwaitingSupportCategory, Effect: EffectRenderCategoryPrompt},

	{AwaitingSupportCategory, Action{Kind: ActionCategory, Category: CategoryOther}}:  {Next: TicketCreated, Effect: EffectCreateTicket},
	{AwaitingSupportCategory, Action{Kind: ActionCategory, Category: CategoryInGame}}: {Next: AwaitingInGameReportConfirmation, Effect: EffectRenderReportPrompt},

	{AwaitingInGameReportConfirmation, Action{Kind: ActionReportNo}}:  {Next: Aborted, Effect: EffectRenderReportRequired},
	{AwaitingInGameReportConfirmation, Action{Kind: ActionReportYes}}: {Next: TicketCreated, Effect: EffectCreateTicket},
}

// Next applies a to the current state. open-ticket is accepted from every
// state and restarts the flow.
func Next(current State, a Action) (Transition, error) {
	if a.Kind == ActionOpenTicket {
		return Transition{From: current, Next: AwaitingFaqConfirmation, Effect: EffectRenderFaqPrompt}, nil
	}
	t, ok := table[edge{current, a}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s in state %s", ErrUnrecognizedAction, a, current)
	}
	t.From = current
	return t, nil
}
