package buffer

// Queue is a FIFO of float64 samples backed by a growable ring buffer.
//
// It decouples producers and consumers that operate on different block
// sizes: a producer pushes arbitrary-length slices, a consumer pops exact
// or bounded counts. Capacity grows on demand and is then reused, so a
// queue that has reached its steady-state high-water mark performs no
// further allocation.
type Queue struct {
	data  []float64
	head  int
	count int
}

// NewQueue returns a Queue with capacity for at least n samples.
func NewQueue(n int) *Queue {
	if n < 0 {
		n = 0
	}
	return &Queue{data: make([]float64, n)}
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	return q.count
}

// Clear drops all queued samples, keeping the backing storage.
func (q *Queue) Clear() {
	q.head = 0
	q.count = 0
}

// PushSlice appends all samples from src, growing the ring if needed.
func (q *Queue) PushSlice(src []float64) {
	if len(src) == 0 {
		return
	}
	q.grow(q.count + len(src))

	tail := (q.head + q.count) % len(q.data)
	n := copy(q.data[tail:], src)
	if n < len(src) {
		copy(q.data, src[n:])
	}
	q.count += len(src)
}

// PopInto removes exactly len(dst) samples into dst, oldest first.
// It returns false without modifying the queue if fewer are available.
func (q *Queue) PopInto(dst []float64) bool {
	if len(dst) > q.count {
		return false
	}
	if len(dst) == 0 {
		return true
	}
	q.readInto(dst)
	return true
}

// DrainInto removes up to len(dst) samples into dst, oldest first, and
// returns how many were written. The remainder of dst is left untouched.
func (q *Queue) DrainInto(dst []float64) int {
	n := len(dst)
	if n > q.count {
		n = q.count
	}
	if n == 0 {
		return 0
	}
	q.readInto(dst[:n])
	return n
}

func (q *Queue) readInto(dst []float64) {
	n := copy(dst, q.data[q.head:min(q.head+len(dst), len(q.data))])
	if n < len(dst) {
		copy(dst[n:], q.data)
	}
	q.head = (q.head + len(dst)) % len(q.data)
	q.count -= len(dst)
	if q.count == 0 {
		q.head = 0
	}
}

// grow ensures the ring can hold at least need samples, linearizing the
// queued content into the new storage.
func (q *Queue) grow(need int) {
	if need <= len(q.data) {
		return
	}
	newCap := len(q.data) * 2
	if newCap < need {
		newCap = need
	}
	fresh := make([]float64, newCap)

	n := copy(fresh, q.data[q.head:min(q.head+q.count, len(q.data))])
	if n < q.count {
		copy(fresh[n:], q.data[:q.count-n])
	}
	q.data = fresh
	q.head = 0
}
