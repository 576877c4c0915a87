package record

// List is a FIFO of records passed between nodes. Dispatch and process
// calls pop from their input list and push to their output list.
// A List is owned by a single pipeline worker and is not safe for
// concurrent use.
type List struct {
	items []*Record
	head  int
}

// NewList creates a list with room for capacity records.
func NewList(capacity int) *List {
	return &List{items: make([]*Record, 0, capacity)}
}

// Push appends records to the tail of the list. Nil records are skipped.
func (l *List) Push(records ...*Record) {
	for _, r := range records {
		if r != nil {
			l.items = append(l.items, r)
		}
	}
}

// Pop removes and returns the record at the head of the list.
func (l *List) Pop() (*Record, bool) {
	if l.head >= len(l.items) {
		return nil, false
	}
	r := l.items[l.head]
	l.items[l.head] = nil
	l.head++
	if l.head == len(l.items) {
		l.items = l.items[:0]
		l.head = 0
	}
	return r, true
}

// Peek returns the record at the head of the list without removing it.
func (l *List) Peek() (*Record, bool) {
	if l.head >= len(l.items) {
		return nil, false
	}
	return l.items[l.head], true
}

// Len returns the number of queued records.
func (l *List) Len() int {
	return len(l.items) - l.head
}

// Items returns the queued records in order. The slice is only valid until
// the list is next modified.
func (l *List) Items() []*Record {
	return l.items[l.head:]
}

// Drain moves every record from src to the tail of l.
func (l *List) Drain(src *List) {
	for {
		r, ok := src.Pop()
		if !ok {
			return
		}
		l.items = append(l.items, r)
	}
}

// Reset empties the list without releasing the records.
func (l *List) Reset() {
	clear(l.items)
	l.items = l.items[:0]
	l.head = 0
}

// Release releases every queued record and empties the list. It returns the
// number of records released.
func (l *List) Release() int {
	n := 0
	for {
		r, ok := l.Pop()
		if !ok {
			return n
		}
		r.Release()
		n++
	}
}
