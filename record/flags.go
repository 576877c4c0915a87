package record

import (
	"strings"
	"time"
)

// Flags is a bit set describing the payload of a record.
type Flags uint32

const (
	// FlagConfig marks codec configuration data rather than payload
	FlagConfig Flags = 1 << iota
	// FlagEndOfStream marks the last record of a stream
	FlagEndOfStream
	// FlagKeyFrame marks a frame that can be decoded on its own
	FlagKeyFrame
)

// Has reports whether every bit in f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Set returns f with the bits in f2 set.
func (f Flags) Set(f2 Flags) Flags {
	return f | f2
}

// Clear returns f with the bits in f2 cleared.
func (f Flags) Clear(f2 Flags) Flags {
	return f &^ f2
}

// String returns a readable form such as "config|key_frame".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(FlagConfig) {
		parts = append(parts, "config")
	}
	if f.Has(FlagEndOfStream) {
		parts = append(parts, "end_of_stream")
	}
	if f.Has(FlagKeyFrame) {
		parts = append(parts, "key_frame")
	}
	if rest := f &^ (FlagConfig | FlagEndOfStream | FlagKeyFrame); rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// Info is the timing and layout metadata stored under KeyInfo.
type Info struct {
	Offset           int           `json:"offset"`
	Size             int           `json:"size"`
	PresentationTime time.Duration `json:"pts"`
	Flags            Flags         `json:"flags"`
}

// Format describes the media carried by a stream, stored under KeyFormat.
type Format struct {
	MIME   string         `json:"mime"`
	Params map[string]any `json:"params,omitempty"`
}
