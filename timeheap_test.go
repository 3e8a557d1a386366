package aio

import (
	"math/rand"
	"testing"
)

func TestTimeHeapOrder(t *testing.T) {

	h := newTimeHeap(8)
	items := make([]Completion, 100)

	perm := rand.New(rand.NewSource(1)).Perm(len(items))
	for i, v := range perm {
		items[i].deadline = int64(v)
		h.push(&items[i])
	}

	if d, ok := h.earliest(); !ok || d != 0 {
		t.Fatalf("earliest = %d, %v", d, ok)
	}

	for want := int64(0); want < int64(len(items)); want++ {
		c := h.popExpired(int64(len(items)))
		if c == nil || c.deadline != want {
			t.Fatalf("pop out of order, got %v want deadline %d", c, want)
		}
	}

	if h.len() != 0 {
		t.Fatalf("heap not drained, len=%d", h.len())
	}
}

func TestTimeHeapPopExpired(t *testing.T) {

	h := newTimeHeap(4)
	items := make([]Completion, 3)
	for i := range items {
		items[i].deadline = int64(i * 10)
		h.push(&items[i])
	}

	// now=10 只应弹出deadline 0和10的
	if c := h.popExpired(10); c != &items[0] {
		t.Fatalf("expected deadline 0 first")
	}
	if c := h.popExpired(10); c != &items[1] {
		t.Fatalf("expected deadline 10 second")
	}
	if c := h.popExpired(10); c != nil {
		t.Fatalf("deadline 20 must not expire at now=10")
	}
	if d, ok := h.earliest(); !ok || d != 20 {
		t.Fatalf("earliest = %d, %v", d, ok)
	}
}

func TestTimeHeapRemove(t *testing.T) {

	h := newTimeHeap(4)
	items := make([]Completion, 10)
	for i := range items {
		items[i].deadline = int64(i)
		h.push(&items[i])
	}

	if !h.remove(&items[5]) {
		t.Fatalf("remove failed")
	}
	if h.remove(&items[5]) {
		t.Fatalf("second remove should fail")
	}
	if !h.remove(&items[0]) {
		t.Fatalf("remove root failed")
	}

	var got []int64
	for {
		c := h.popExpired(int64(len(items)))
		if c == nil {
			break
		}
		got = append(got, c.deadline)
	}

	want := []int64{1, 2, 3, 4, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
