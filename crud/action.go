package crud

import "fmt"

// Action identifies one of the five generated CRUD operations.
type Action int

const (
	// ActionList retrieves a filtered, ordered page of records.
	ActionList Action = iota

	// ActionGet retrieves a single record by id.
	ActionGet

	// ActionCreate stores a new record.
	ActionCreate

	// ActionUpdate modifies an existing record by id.
	ActionUpdate

	// ActionDelete removes a record by id.
	ActionDelete
)

// AllActions returns the five CRUD actions in registration order.
func AllActions() []Action {
	return []Action{ActionList, ActionGet, ActionCreate, ActionUpdate, ActionDelete}
}

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionGet:
		return "get"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseAction returns the Action named by s.
func ParseAction(s string) (Action, error) {
	switch s {
	case "list":
		return ActionList, nil
	case "get":
		return ActionGet, nil
	case "create":
		return ActionCreate, nil
	case "update":
		return ActionUpdate, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// ParseActions converts a list of action names, failing on the first
// unknown name.
func ParseActions(names []string) ([]Action, error) {
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		a, err := ParseAction(name)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}
