package flow

import (
	"fmt"
	"strings"
)

// Control custom ids. Step controls carry the flow instance id after a
// colon; the open and close buttons never do.
const (
	IDOpenTicket    = "open_ticket_btn"
	IDFaqYes        = "step_faq_yes"
	IDFaqNo         = "step_faq_no"
	IDSupportSelect = "step_support_select"
	IDReportYes     = "step_ingame_report_yes"
	IDReportNo      = "step_ingame_report_no"
	IDCloseTicket   = "close_ticket_btn"
)

// ControlID builds the custom id for a step control bound to flowID.
func ControlID(base, flowID string) string {
	if flowID == "" {
		return base
	}
	return base + ":" + flowID
}

// SplitControlID separates a custom id into its base and flow id.
func SplitControlID(customID string) (base, flowID string) {
	base, flowID, _ = strings.Cut(customID, ":")
	return base, flowID
}

// ParseAction maps a component interaction onto a flow Action. The close
// button is not a flow action and is reported as unrecognized here.
func ParseAction(customID string, values []string) (Action, string, error) {
	base, flowID := SplitControlID(customID)
	switch base {
	case IDOpenTicket:
		return Action{Kind: ActionOpenTicket}, "", nil
	case IDFaqYes:
		return Action{Kind: ActionFaqYes}, flowID, nil
	case IDFaqNo:
		return Action{Kind: ActionFaqNo}, flowID, nil
	case IDReportYes:
		return Action{Kind: ActionReportYes}, flowID, nil
	case IDReportNo:
		return Action{Kind: ActionReportNo}, flowID, nil
	case IDSupportSelect:
		if len(values) == 0 {
			return Action{}, flowID, fmt.Errorf("%w: empty selection", ErrUnrecognizedAction)
		}
		switch c := Category(values[0]); c {
		case CategoryInGame, CategoryOther:
			return Action{Kind: ActionCategory, Category: c}, flowID, nil
		default:
			return Action{}, flowID, fmt.Errorf("%w: category %q", ErrUnrecognizedAction, values[0])
		}
	}
	return Action{}, flowID, fmt.Errorf("%w: control %q", ErrUnrecognizedAction, base)
}
