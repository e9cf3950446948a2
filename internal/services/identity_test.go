package services

import "testing"

func TestValidActorID(t *testing.T) {
	valid := []string{"alice", "user-42", "a.b", "double..dot", "Πρόδρομος"}
	for _, id := range valid {
		if !ValidActorID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}

	invalid := []string{
		"",
		".",
		"..",
		"global",
		"../alice",
		"..\\alice",
		"a/b",
		"a\\b",
		"nul\x00byte",
		string(make([]byte, 200)),
	}
	for _, id := range invalid {
		if ValidActorID(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}
