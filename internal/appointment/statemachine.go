package appointment

import (
	"github.com/wecare-health/wecare/internal/identity"
)

type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"

	// ActionRate attaches a rating to a completed appointment without
	// changing its status, so it has no entry in the transition table.
	ActionRate Action = "rate"
)

type transition struct {
	from []Status
	to   Status
	role identity.Role
}

// Nurses may withdraw from a confirmed booking as well as a pending one.
var transitions = map[Action]transition{
	ActionAccept:   {from: []Status{StatusPending}, to: StatusConfirmed, role: identity.RoleNurse},
	ActionDecline:  {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled, role: identity.RoleNurse},
	ActionCancel:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled, role: identity.RolePatient},
	ActionComplete: {from: []Status{StatusConfirmed}, to: StatusCompleted, role: identity.RoleAdmin},
}

func (t transition) allows(s Status) bool {
	for _, f := range t.from {
		if f == s {
			return true
		}
	}
	return false
}

// Next returns the status action leads to from current, or false when the
// transition table has no such edge.
func Next(action Action, current Status) (Status, bool) {
	t, ok := transitions[action]
	if !ok || !t.allows(current) {
		return "", false
	}
	return t.to, true
}

// RoleFor returns the only role allowed to trigger action.
func RoleFor(action Action) (identity.Role, bool) {
	t, ok := transitions[action]
	return t.role, ok
}

// CanTransition reports whether any action moves an appointment from one
// status to the other.
func CanTransition(from, to Status) bool {
	for _, t := range transitions {
		if t.to == to && t.allows(from) {
			return true
		}
	}
	return false
}
