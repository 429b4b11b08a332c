package utils

import (
	"strings"
	"testing"
)

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if !strings.HasPrefix(id1, "run-") {
		t.Errorf("GenerateRunID should start with 'run-': %s", id1)
	}
	if id1 == id2 {
		t.Error("GenerateRunID should return unique IDs")
	}
}

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if len(id) != 36 {
			t.Fatalf("expected a 36 character uuid, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		seen[id] = true
	}
}
