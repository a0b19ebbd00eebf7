package syncengine

import "github.com/dimitrije/linkshelf-api/internal/models"

type Decision int

const (
	DecisionCreate Decision = iota + 1
	DecisionUpdate
	DecisionDelete
	DecisionNoOp
	DecisionConflict
)

func (d Decision) String() string {
	switch d {
	case DecisionCreate:
		return "create"
	case DecisionUpdate:
		return "update"
	case DecisionDelete:
		return "delete"
	case DecisionNoOp:
		return "noop"
	case DecisionConflict:
		return "conflict"
	}
	return "unknown"
}

// Policy selects how an update is checked against the server version.
type Policy string

const (
	// PolicyVersion treats a lastServerUpdatedAt that differs from the
	// server's updatedAt as a conflict before comparing timestamps.
	PolicyVersion Policy = "version"
	// PolicyLWW compares client and server updatedAt only.
	PolicyLWW Policy = "lww"
)

// Resolve decides what to do with change given the server row the acting
// user may edit, or nil when there is none. Equal timestamps resolve to the
// server.
func Resolve(change Change, existing *models.EntityVersion, policy Policy) Decision {
	if existing == nil {
		if change.IsDeleted {
			return DecisionNoOp
		}
		return DecisionCreate
	}

	if change.IsDeleted {
		if existing.IsDeleted {
			return DecisionNoOp
		}
		return DecisionDelete
	}

	// A deletion is never undone by an edit made without seeing it.
	if existing.IsDeleted {
		return DecisionConflict
	}

	if policy != PolicyLWW && change.LastServerUpdatedAt != nil &&
		!change.LastServerUpdatedAt.Equal(existing.UpdatedAt) {
		return DecisionConflict
	}

	if change.UpdatedAt.After(existing.UpdatedAt) {
		return DecisionUpdate
	}
	return DecisionConflict
}
