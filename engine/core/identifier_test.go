package core

import "testing"

func TestIdentifierLifecycle(t *testing.T) {
	owner := "window"
	id := IdentifierAquireNewID(owner)

	got, ok := IdentifierOwner(id)
	if !ok || got != owner {
		t.Fatalf("owner lookup failed: %v %v", got, ok)
	}
	if err := IdentifierReleaseID(id); err != nil {
		t.Fatal(err)
	}
	if err := IdentifierReleaseID(id); err == nil {
		t.Fatal("releasing twice should fail")
	}
}
