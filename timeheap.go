package aio

//timeHeap 以绝对截止时间为key的小顶堆，只存放timeout类型的completion，
//堆下标记录在completion里，删除任意元素为O(log n)
type timeHeap struct {
	items []*Completion
}

//newTimeHeap 按照提示值预留容量
func newTimeHeap(hint uint32) timeHeap {
	return timeHeap{
		items: make([]*Completion, 0, hint),
	}
}

//push 插入
func (h *timeHeap) push(c *Completion) {
	c.heapIdx = len(h.items)
	h.items = append(h.items, c)
	h.up(c.heapIdx)
}

//remove 摘除任意元素
func (h *timeHeap) remove(c *Completion) bool {

	i := c.heapIdx
	if i < 0 || i >= len(h.items) || h.items[i] != c {
		return false
	}

	last := len(h.items) - 1
	h.swap(i, last)
	h.items = h.items[:last]
	c.heapIdx = -1

	if i < last {
		h.down(i)
		h.up(i)
	}

	return true
}

//earliest 最近的截止时间
func (h *timeHeap) earliest() (int64, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	return h.items[0].deadline, true
}

//popExpired 弹出一个已到期的元素，没有则返回nil
func (h *timeHeap) popExpired(now int64) *Completion {

	if len(h.items) == 0 {
		return nil
	}

	c := h.items[0]
	if c.deadline > now {
		return nil
	}

	last := len(h.items) - 1
	h.swap(0, last)
	h.items = h.items[:last]
	c.heapIdx = -1
	if last > 0 {
		h.down(0)
	}

	return c
}

//len 堆大小
func (h *timeHeap) len() int {
	return len(h.items)
}

func (h *timeHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].deadline <= h.items[i].deadline {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *timeHeap) down(i int) {
	n := len(h.items)
	for {
		left := i*2 + 1
		if left >= n {
			break
		}

		small := left
		if right := left + 1; right < n && h.items[right].deadline < h.items[left].deadline {
			small = right
		}

		if h.items[i].deadline <= h.items[small].deadline {
			break
		}
		h.swap(i, small)
		i = small
	}
}

func (h *timeHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIdx = i
	h.items[j].heapIdx = j
}
