package authz

import "testing"

func TestStaticAuthorizerDeniesByDefault(t *testing.T) {
	a := NewStatic()
	if a.MayRecord("alice", "division-1") {
		t.Error("expected no grant by default")
	}
}

func TestStaticAuthorizerGrantsSpecificDivision(t *testing.T) {
	a := NewStatic()
	a.Grant("alice", "division-1")
	if !a.MayRecord("alice", "division-1") {
		t.Error("expected grant to allow division-1")
	}
	if a.MayRecord("alice", "division-2") {
		t.Error("expected no grant for division-2")
	}
}

func TestStaticAuthorizerEmptyDivisionGrantsAll(t *testing.T) {
	a := NewStatic()
	a.Grant("bob", "")
	if !a.MayView("bob", "division-9") {
		t.Error("expected empty-division grant to allow any division")
	}
}
