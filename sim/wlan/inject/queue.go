package inject

import "github.com/toitlang/wlansim/sim/wlan/ieee80211"

const initialQueueCapacity = 8

// Queue is an unbounded FIFO of frames over a ring buffer that doubles when full.
type Queue struct {
	start  int
	count  int
	buffer []ieee80211.Frame
}

func (q *Queue) Len() int {
	return q.count
}

// Translate a queue position to a buffer position.
func (q *Queue) index(i int) int {
	offset := q.start + i
	if offset >= len(q.buffer) {
		offset -= len(q.buffer)
	}
	return offset
}

func (q *Queue) grow() {
	newCap := len(q.buffer) * 2
	if newCap == 0 {
		newCap = initialQueueCapacity
	}
	buffer := make([]ieee80211.Frame, newCap)
	if q.start+q.count <= len(q.buffer) {
		copy(buffer, q.buffer[q.start:q.start+q.count])
	} else {
		// data wraps around, copy 2 segments
		n := copy(buffer, q.buffer[q.start:])
		copy(buffer[n:], q.buffer[:q.count-n])
	}
	q.start = 0
	q.buffer = buffer
}

func (q *Queue) Push(frame ieee80211.Frame) {
	if q.count == len(q.buffer) {
		q.grow()
	}
	q.buffer[q.index(q.count)] = frame
	q.count++
}

// Pop removes the oldest frame. The second result is false if the queue was empty.
func (q *Queue) Pop() (ieee80211.Frame, bool) {
	if q.count == 0 {
		return ieee80211.Frame{}, false
	}
	frame := q.buffer[q.start]
	// drop the reference so the body can be collected
	q.buffer[q.start] = ieee80211.Frame{}
	q.start = q.index(1)
	q.count--
	return frame, true
}

func (q *Queue) Clear() {
	for q.count > 0 {
		q.Pop()
	}
	q.start = 0
}
