package handoff

const (
	minSize      = 8
	growthFactor = 2
	shrinkFactor = 4
)

// ringBuffer grows and shrinks with its content. Not goroutine-safe.
type ringBuffer[T any] struct {
	buf  []T
	len  int
	head int
	tail int
}

func newRingBuffer[T any]() *ringBuffer[T] {
	return &ringBuffer[T]{buf: make([]T, minSize)}
}

func (rb *ringBuffer[T]) push(v T) {
	if rb.len == len(rb.buf) {
		rb.resize(rb.len * growthFactor)
	}
	rb.buf[rb.tail] = v
	rb.tail = (rb.tail + 1) % len(rb.buf)
	rb.len++
}

// pop returns the oldest item, or false when empty.
func (rb *ringBuffer[T]) pop() (T, bool) {
	var zero T
	if rb.len == 0 {
		return zero, false
	}
	v := rb.buf[rb.head]
	rb.buf[rb.head] = zero
	rb.head = (rb.head + 1) % len(rb.buf)
	rb.len--

	if size := len(rb.buf); size > minSize && rb.len <= size/shrinkFactor {
		rb.resize(max(minSize, size/growthFactor))
	}
	return v, true
}

func (rb *ringBuffer[T]) resize(size int) {
	next := make([]T, size)
	if rb.len > 0 {
		if rb.head < rb.tail {
			copy(next, rb.buf[rb.head:rb.tail])
		} else {
			n := copy(next, rb.buf[rb.head:])
			copy(next[n:], rb.buf[:rb.tail])
		}
	}
	rb.head = 0
	rb.tail = rb.len % size
	rb.buf = next
}
