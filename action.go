package auditlog

import (
	"fmt"
	"strings"
)

// Action is the lifecycle event kind an audit row records.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

// Actions lists every supported action in watcher order.
var Actions = []Action{ActionCreate, ActionUpdate, ActionDelete, ActionRestore}

func (a Action) String() string {
	return string(a)
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRestore:
		return true
	default:
		return false
	}
}

// ParseAction converts a case-insensitive action name into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}
