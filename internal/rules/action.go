package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ActionKind names one effect a matched trigger applies to a ticket.
type ActionKind string

const (
	ActionAssignQueue    ActionKind = "assign_queue"
	ActionAssignResolver ActionKind = "assign_resolver"
	ActionSetPriority    ActionKind = "set_priority"
	ActionSetStatus      ActionKind = "set_status"
)

// KnownActionKind reports whether k is an action kind this version executes.
func KnownActionKind(k ActionKind) bool {
	switch k {
	case ActionAssignQueue, ActionAssignResolver, ActionSetPriority, ActionSetStatus:
		return true
	}
	return false
}

// Action is one effect in a trigger's ordered action list. Value is the
// stringified target: a queue or resolver id, or a priority/status enum
// value.
type Action struct {
	Type  ActionKind `json:"type"`
	Value string     `json:"value"`
}

// DecodeActions parses a stored action list.
func DecodeActions(data []byte) ([]Action, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal(trimmed, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// EncodeActions serializes an action list in the storage format.
func EncodeActions(actions []Action) ([]byte, error) {
	if actions == nil {
		actions = []Action{}
	}
	return json.Marshal(actions)
}

// StatusInProgress accompanies resolver assignment, mirroring the manual
// assign-to-me flow on the resolver dashboard which sets both fields
// together.
const StatusInProgress = "in_progress"

// Patch is the accumulated effect of applying ordered action lists. Nil
// fields stay untouched. Actions fold into a patch instead of the persisted
// record so a failed commit never leaves a half-applied trigger behind, and
// so a later action (or later trigger) can override an earlier one.
type Patch struct {
	QueueID      *uint
	AssignedToID *uint
	Priority     *string
	Status       *string
}

// Zero reports whether the patch changes nothing.
func (p Patch) Zero() bool {
	return p.QueueID == nil && p.AssignedToID == nil && p.Priority == nil && p.Status == nil
}

// Apply folds actions in order into the patch. Later actions win. A
// malformed or unknown action fails only itself; its error is returned for
// logging and the remaining actions still apply.
func (p *Patch) Apply(actions []Action) []error {
	var errs []error
	for _, a := range actions {
		switch a.Type {
		case ActionAssignQueue:
			id, err := parseID(a.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("assign_queue: %w", err))
				continue
			}
			p.QueueID = &id
		case ActionAssignResolver:
			id, err := parseID(a.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("assign_resolver: %w", err))
				continue
			}
			p.AssignedToID = &id
			status := StatusInProgress
			p.Status = &status
		case ActionSetPriority:
			v := a.Value
			p.Priority = &v
		case ActionSetStatus:
			v := a.Value
			p.Status = &v
		default:
			errs = append(errs, fmt.Errorf("unknown action type %q", a.Type))
		}
	}
	return errs
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
