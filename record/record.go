package record

import (
	"slices"
	"sync"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/pkg/buffer"
)

// Standard keys understood by the engine's reference nodes
const (
	KeyBuffer  = "buffer"
	KeyInfo    = "info"
	KeyFormat  = "format"
	KeyTraceID = "trace_id"
)

// ReleaseListener is called once when a record is released, before its
// local state is cleared.
type ReleaseListener func(r *Record)

// linkMu serializes parent assignment so two records cannot adopt each other
// concurrently.
var linkMu sync.Mutex

// Record is a reference-counted key/value container for one unit of
// streamed media.
//
// Lookups fall through to the parent chain; writes only touch the record's
// own map. A child holds one reference on its parent from SetParent until
// the child is released, and a parent is released when its last reference
// goes away.
type Record struct {
	mu        sync.Mutex
	values    map[string]any
	parent    *Record
	refs      int
	listeners []ReleaseListener
	released  bool

	// recycle receives the released shell and the buffer it owned
	recycle func(r *Record, buf *buffer.Buffer)
}

// New creates an empty record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// Derive creates a child record that reads through to r.
func (r *Record) Derive() (*Record, error) {
	child := New()
	if err := child.SetParent(r); err != nil {
		return nil, err
	}
	return child, nil
}

// Get looks up key in the record, then in its ancestors.
func (r *Record) Get(key string) (any, bool) {
	r.mu.Lock()
	v, ok := r.values[key]
	parent := r.parent
	r.mu.Unlock()

	if ok {
		return v, true
	}
	if parent != nil {
		return parent.Get(key)
	}
	return nil, false
}

// Set stores a value in the record's own map. Setting on a released record
// is ignored.
func (r *Record) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.values[key] = value
}

// Delete removes key from the record's own map. Inherited values stay
// visible.
func (r *Record) Delete(key string) {
	r.mu.Lock()
	delete(r.values, key)
	r.mu.Unlock()
}

// Keys returns the sorted, de-duplicated keys visible from r.
func (r *Record) Keys() []string {
	seen := make(map[string]struct{})
	for cur := r; cur != nil; {
		cur.mu.Lock()
		for k := range cur.values {
			seen[k] = struct{}{}
		}
		next := cur.parent
		cur.mu.Unlock()
		cur = next
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetParent links r to p and takes one reference on p. The parent can only
// be assigned once, and never to r itself or one of its descendants.
func (r *Record) SetParent(p *Record) error {
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "Record", "SetParent", "nil parent")
	}

	linkMu.Lock()
	defer linkMu.Unlock()

	for a := p; a != nil; a = a.Parent() {
		if a == r {
			return errors.WrapFatal(errors.ErrRecordCycle, "Record", "SetParent", "ancestry check")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return errors.WrapInvalid(errors.ErrRecordReleased, "Record", "SetParent", "child state check")
	}
	if r.parent != nil {
		return errors.WrapInvalid(errors.ErrParentAssigned, "Record", "SetParent", "parent check")
	}
	if err := p.ref(); err != nil {
		return errors.WrapInvalid(err, "Record", "SetParent", "parent reference")
	}
	r.parent = p
	return nil
}

// Parent returns the parent record, or nil.
func (r *Record) Parent() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parent
}

// Refs returns the number of children holding a reference on r.
func (r *Record) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// Released reports whether r has been released.
func (r *Record) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// AddReleaseListener registers fn to run when r is released. Listeners run
// most recently added first.
func (r *Record) AddReleaseListener(fn ReleaseListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Release fires the release listeners, clears the record and drops its
// reference on the parent. A record that children still reference is
// released when the last of them goes away. Releasing twice is a no-op.
func (r *Record) Release() {
	r.mu.Lock()
	if r.released || r.refs > 0 {
		r.mu.Unlock()
		return
	}
	r.released = true
	listeners := r.listeners
	r.listeners = nil
	r.mu.Unlock()

	for i := len(listeners) - 1; i >= 0; i-- {
		listeners[i](r)
	}

	r.mu.Lock()
	var buf *buffer.Buffer
	if b, ok := r.values[KeyBuffer].(*buffer.Buffer); ok {
		buf = b
	}
	clear(r.values)
	parent := r.parent
	r.parent = nil
	recycle := r.recycle
	r.mu.Unlock()

	if parent != nil {
		parent.unref()
	}
	if recycle != nil {
		recycle(r, buf)
	}
}

func (r *Record) ref() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errors.ErrRecordReleased
	}
	r.refs++
	return nil
}

// unref drops one child reference; the decrement and the zero check happen
// under the same lock so exactly one caller observes zero.
func (r *Record) unref() {
	r.mu.Lock()
	if r.refs == 0 {
		r.mu.Unlock()
		return
	}
	r.refs--
	last := r.refs == 0
	r.mu.Unlock()

	if last {
		r.Release()
	}
}

// reset prepares a recycled shell for reuse.
func (r *Record) reset(recycle func(*Record, *buffer.Buffer)) {
	r.mu.Lock()
	if r.values == nil {
		r.values = make(map[string]any)
	}
	clear(r.values)
	r.parent = nil
	r.refs = 0
	r.listeners = nil
	r.released = false
	r.recycle = recycle
	r.mu.Unlock()
}

// Buffer returns the payload buffer, if any.
func (r *Record) Buffer() (*buffer.Buffer, bool) {
	v, ok := r.Get(KeyBuffer)
	if !ok {
		return nil, false
	}
	b, ok := v.(*buffer.Buffer)
	return b, ok
}

// SetBuffer stores the payload buffer.
func (r *Record) SetBuffer(b *buffer.Buffer) {
	r.Set(KeyBuffer, b)
}

// Info returns the timing metadata, if any.
func (r *Record) Info() (Info, bool) {
	v, ok := r.Get(KeyInfo)
	if !ok {
		return Info{}, false
	}
	info, ok := v.(Info)
	return info, ok
}

// SetInfo stores the timing metadata.
func (r *Record) SetInfo(info Info) {
	r.Set(KeyInfo, info)
}

// Flags returns the flags from the record's Info, or zero.
func (r *Record) Flags() Flags {
	info, _ := r.Info()
	return info.Flags
}

// MediaFormat returns the media format descriptor, if any.
func (r *Record) MediaFormat() (Format, bool) {
	v, ok := r.Get(KeyFormat)
	if !ok {
		return Format{}, false
	}
	f, ok := v.(Format)
	return f, ok
}

// SetMediaFormat stores the media format descriptor.
func (r *Record) SetMediaFormat(f Format) {
	r.Set(KeyFormat, f)
}

// IntValue returns an integer value stored under key.
func (r *Record) IntValue(key string) (int, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// StringValue returns a string value stored under key.
func (r *Record) StringValue(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
