package applications

import (
	"fmt"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
)

// Reviewer decisions leave PENDING only; PROCESSING can only complete to APPROVED.
var transitions = map[enums.ApplicationStatus][]enums.ApplicationStatus{
	enums.ApplicationStatusPending: {
		enums.ApplicationStatusProcessing,
		enums.ApplicationStatusApproved,
		enums.ApplicationStatusRejected,
	},
	enums.ApplicationStatusProcessing: {
		enums.ApplicationStatusApproved,
	},
}

// CanTransition reports whether from -> to is an edge of the application state machine.
func CanTransition(from, to enums.ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to. Terminal states never move again.
func Transition(from, to enums.ApplicationStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("application already %s", from))
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("application cannot move from %s to %s", from, to))
}

// SourcesFor lists the states from which to is reachable.
func SourcesFor(to enums.ApplicationStatus) []enums.ApplicationStatus {
	var out []enums.ApplicationStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}
