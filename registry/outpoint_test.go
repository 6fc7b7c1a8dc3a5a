package registry

import (
	"bytes"
	"testing"
)

func TestOutpointEncodeDecodeRoundTrip(t *testing.T) {
	o := testOutpoint(7, 42)
	var buf bytes.Buffer
	if err := o.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeOutpoint(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != o {
		t.Fatalf("round trip mismatch: got %v want %v", got, o)
	}
}

func TestOutpointLessIsTotalOrder(t *testing.T) {
	a := testOutpoint(1, 5)
	b := testOutpoint(1, 6)
	c := testOutpoint(2, 0)

	if !a.Less(b) {
		t.Fatal("expected a < b by vout")
	}
	if !b.Less(c) {
		t.Fatal("expected b < c by txid")
	}
	if a.Less(a) {
		t.Fatal("Less must be strict, not reflexive")
	}
}
