package aio

import (
	"testing"
)

func TestQueueFIFO(t *testing.T) {

	var q queue
	items := make([]Completion, 5)

	for i := range items {
		items[i].fd = i
		q.push(&items[i])
	}

	if q.len() != len(items) {
		t.Fatalf("len = %d, want %d", q.len(), len(items))
	}

	for i := range items {
		c := q.pop()
		if c == nil || c.fd != i {
			t.Fatalf("pop out of order, got %v at %d", c, i)
		}
	}

	if !q.empty() || q.pop() != nil {
		t.Fatalf("queue should be empty")
	}
}

func TestQueuePeek(t *testing.T) {

	var q queue
	var c Completion

	if q.peek() != nil {
		t.Fatalf("peek on empty queue")
	}

	q.push(&c)
	if q.peek() != &c {
		t.Fatalf("peek should return head without popping")
	}
	if q.len() != 1 {
		t.Fatalf("peek must not pop")
	}
}

func TestQueueRemove(t *testing.T) {

	var q queue
	items := make([]Completion, 4)
	for i := range items {
		items[i].fd = i
		q.push(&items[i])
	}

	// 中间
	if !q.remove(&items[2]) {
		t.Fatalf("remove middle failed")
	}
	// 队首
	if !q.remove(&items[0]) {
		t.Fatalf("remove head failed")
	}
	// 队尾
	if !q.remove(&items[3]) {
		t.Fatalf("remove tail failed")
	}
	// 不在队列里的
	if q.remove(&items[3]) {
		t.Fatalf("remove should fail for unlinked completion")
	}

	if c := q.pop(); c != &items[1] {
		t.Fatalf("unexpected survivor %v", c)
	}
	if !q.empty() {
		t.Fatalf("queue should be empty")
	}

	// 摘掉队尾之后还能正常追加
	q.push(&items[0])
	q.push(&items[1])
	if q.pop() != &items[0] || q.pop() != &items[1] {
		t.Fatalf("push after remove broke the list")
	}
}
