package util

import (
	"golang.org/x/exp/constraints"
)

//**********************************************************
// indexed priority queue
//**********************************************************

// Min-priority queue over int32 ids with a mapped binary heap.
// positions[id] tracks the heap slot of every enqueued id, which makes
// decrease-key O(log n) instead of the O(n) remove-and-reinsert.
// ids have to be smaller than the size passed at construction.
type IndexedQueue[P constraints.Ordered] struct {
	heap       List[int32]
	positions  Array[int32]
	priorities Array[P]
}

func NewIndexedQueue[P constraints.Ordered](size int) IndexedQueue[P] {
	positions := NewArray[int32](size)
	for i := 0; i < size; i++ {
		positions[i] = -1
	}
	return IndexedQueue[P]{
		heap:       NewList[int32](100),
		positions:  positions,
		priorities: NewArray[P](size),
	}
}

func (self *IndexedQueue[P]) Length() int {
	return self.heap.Length()
}

func (self *IndexedQueue[P]) Contains(id int32) bool {
	return self.positions[id] != -1
}

// Clears the queue and restores every position slot.
func (self *IndexedQueue[P]) Reset() {
	for _, id := range self.heap {
		self.positions[id] = -1
	}
	self.heap.Clear()
}

// Inserts id or lowers its priority if already enqueued.
// Raising a priority is not supported and is silently ignored.
func (self *IndexedQueue[P]) Enqueue(id int32, priority P) {
	pos := self.positions[id]
	if pos == -1 {
		self.priorities[id] = priority
		self.heap.Add(id)
		self.positions[id] = int32(self.heap.Length() - 1)
		self.sift_up(self.heap.Length() - 1)
	} else if priority < self.priorities[id] {
		self.priorities[id] = priority
		self.sift_up(int(pos))
	}
}

func (self *IndexedQueue[P]) Dequeue() (int32, bool) {
	if self.heap.Length() == 0 {
		return -1, false
	}
	min := self.heap[0]
	last := self.heap.Length() - 1
	self.swap(0, last)
	self.heap = self.heap[:last]
	self.positions[min] = -1
	if last > 0 {
		self.sift_down(0)
	}
	return min, true
}

func (self *IndexedQueue[P]) swap(i int, j int) {
	self.heap[i], self.heap[j] = self.heap[j], self.heap[i]
	self.positions[self.heap[i]] = int32(i)
	self.positions[self.heap[j]] = int32(j)
}

func (self *IndexedQueue[P]) sift_up(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		if self.priorities[self.heap[parent]] <= self.priorities[self.heap[index]] {
			break
		}
		self.swap(parent, index)
		index = parent
	}
}

func (self *IndexedQueue[P]) sift_down(index int) {
	length := self.heap.Length()
	for {
		left := 2*index + 1
		right := 2*index + 2
		smallest := index
		if left < length && self.priorities[self.heap[left]] < self.priorities[self.heap[smallest]] {
			smallest = left
		}
		if right < length && self.priorities[self.heap[right]] < self.priorities[self.heap[smallest]] {
			smallest = right
		}
		if smallest == index {
			break
		}
		self.swap(smallest, index)
		index = smallest
	}
}
