package registry

import "testing"

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewError(ConsensusReject, "bad block", "deadbeef")
	if !Is(err, ConsensusReject) {
		t.Fatal("expected Is to match ConsensusReject")
	}
	if Is(err, StorageFailure) {
		t.Fatal("expected Is to not match a different kind")
	}
}

func TestFatalKinds(t *testing.T) {
	if !StorageFailure.Fatal() {
		t.Fatal("StorageFailure must be fatal")
	}
	if !InvariantViolation.Fatal() {
		t.Fatal("InvariantViolation must be fatal")
	}
	if ConsensusReject.Fatal() {
		t.Fatal("ConsensusReject must not be fatal")
	}
	if NotApplicable.Fatal() {
		t.Fatal("NotApplicable must not be fatal")
	}
}
