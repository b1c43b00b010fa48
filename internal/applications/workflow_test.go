package applications

import (
	"testing"

	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	pending := enums.ApplicationStatusPending
	processing := enums.ApplicationStatusProcessing
	approved := enums.ApplicationStatusApproved
	rejected := enums.ApplicationStatusRejected

	cases := []struct {
		from, to enums.ApplicationStatus
		ok       bool
	}{
		{pending, processing, true},
		{pending, approved, true},
		{pending, rejected, true},
		{processing, approved, true},
		{processing, rejected, false},
		{processing, pending, false},
		{approved, rejected, false},
		{rejected, approved, false},
		{approved, approved, false},
		{rejected, pending, false},
	}

	for _, tc := range cases {
		err := Transition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
		if !tc.ok {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeConflict {
				t.Fatalf("%s -> %s should conflict, got %v", tc.from, tc.to, err)
			}
		}
	}
}

func TestSourcesFor(t *testing.T) {
	sources := SourcesFor(enums.ApplicationStatusApproved)
	if len(sources) != 2 {
		t.Fatalf("expected approved to be reachable from two states, got %v", sources)
	}
	rejectable := SourcesFor(enums.ApplicationStatusRejected)
	if len(rejectable) != 1 || rejectable[0] != enums.ApplicationStatusPending {
		t.Fatalf("expected rejection only from pending, got %v", rejectable)
	}
	if len(SourcesFor(enums.ApplicationStatusPending)) != 0 {
		t.Fatalf("pending is only an initial state")
	}
}
