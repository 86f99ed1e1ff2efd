package main

import (
	"strings"
	"testing"
)

func TestValidateNewMasterRejectsGuessable(t *testing.T) {
	// Satisfies the character policy but is a predictable pattern; the
	// estimator layer must catch it before any key derivation happens.
	err := validateNewMaster([]byte("Password1234!"))
	if err == nil {
		t.Fatal("guessable password accepted for a new master")
	}
	if !strings.Contains(err.Error(), "guessable") {
		t.Fatalf("rejection reason %q, want the strength score", err)
	}
}

func TestValidateNewMasterRejectsPolicyViolations(t *testing.T) {
	cases := []struct {
		name string
		pw   string
	}{
		{"too short", "Ab1!x"},
		{"no uppercase", "lowercase-only-12!"},
		{"no special", "NoSpecials12345678"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateNewMaster([]byte(tc.pw)); err == nil {
				t.Fatal("policy violation accepted for a new master")
			}
		})
	}
}
