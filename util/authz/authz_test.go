package authz

import (
	"testing"

	"booklending/model"
)

func TestCanActOnLoan(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		caller   int64
		owner    int64
		expected bool
	}{
		{"owner acts on own loan", model.RoleUser, 1, 1, true},
		{"user cannot act on another's loan", model.RoleUser, 1, 2, false},
		{"librarian acts on any loan", model.RoleLibrarian, 9, 2, true},
		{"admin acts on any loan", model.RoleAdmin, 9, 2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanActOnLoan(tc.role, tc.caller, tc.owner); got != tc.expected {
				t.Fatalf("got %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestScopeUserID(t *testing.T) {
	if got := ScopeUserID(model.RoleUser, 1, 2); got != 1 {
		t.Fatalf("plain user should be scoped to self, got %d", got)
	}
	if got := ScopeUserID(model.RoleLibrarian, 1, 2); got != 2 {
		t.Fatalf("librarian should keep requested id, got %d", got)
	}
}
