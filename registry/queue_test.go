package registry

import "testing"

func TestPaymentQueueFIFOOrder(t *testing.T) {
	q := NewPaymentQueue()
	a, b, c := testOutpoint(1, 0), testOutpoint(2, 0), testOutpoint(3, 0)
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	head, ok := q.Head()
	if !ok || head != a {
		t.Fatalf("expected head %v, got %v", a, head)
	}

	if !q.RotateToBack(a) {
		t.Fatal("rotate failed")
	}
	got := q.Slice()
	want := []Outpoint{b, c, a}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestPaymentQueueRemoveAndInsertAt(t *testing.T) {
	q := NewPaymentQueue()
	a, b, c := testOutpoint(1, 0), testOutpoint(2, 0), testOutpoint(3, 0)
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	pos := q.Position(b)
	if pos != 1 {
		t.Fatalf("expected position 1, got %d", pos)
	}
	if !q.Remove(b) {
		t.Fatal("remove failed")
	}
	if q.Contains(b) {
		t.Fatal("expected b removed")
	}

	q.InsertAt(b, pos)
	got := q.Slice()
	want := []Outpoint{a, b, c}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reinsertion mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestPaymentQueuePushBackIgnoresDuplicate(t *testing.T) {
	q := NewPaymentQueue()
	a := testOutpoint(1, 0)
	q.PushBack(a)
	q.PushBack(a)
	if q.Len() != 1 {
		t.Fatalf("expected len 1, got %d", q.Len())
	}
}
