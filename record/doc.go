// Package record provides the unit of data moved through a pipeline.
//
// A Record is a small key/value container. The engine reserves three keys:
// KeyBuffer holds the payload as a *buffer.Buffer, KeyInfo holds an Info
// with offset, size, presentation time and Flags, and KeyFormat holds a
// Format describing the stream.
//
// Records may be linked to a parent with SetParent or Derive. A child reads
// through to its ancestors but only ever writes to its own map, and it holds
// one reference on its parent until it is released:
//
//	frame := pool.GetWithBuffer(4096)
//	view, _ := frame.Derive()      // frame.Refs() == 1
//	view.Set("crop", rect)         // frame is untouched
//	view.Release()                 // frame is released too
//
// Release listeners run most recently added first, before the record's local
// state is cleared. Records drawn from a Pool return their buffer to the
// pool's buffer.Cache and their shell to the pool once released.
package record
