// Package file provides a sink node that writes records to a file
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/mediaflow/config"
	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/record"
)

// Type is the registry name of the file sink
const Type = "file"

// Config holds configuration for the file sink
type Config struct {
	Directory  string `json:"directory" yaml:"directory"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix"`
	Format     string `json:"format" yaml:"format"` // json, jsonl or raw
	Append     bool   `json:"append" yaml:"append"`
	BufferSize int    `json:"buffer_size" yaml:"buffer_size"` // Entries held before a write, 0 writes immediately
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Directory == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "directory is required")
	}

	validFormats := map[string]bool{"json": true, "jsonl": true, "raw": true}
	if !validFormats[c.Format] {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"format must be one of: json, jsonl, raw")
	}

	if c.BufferSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"buffer_size cannot be negative")
	}
	return nil
}

// DefaultConfig returns default configuration for the file sink
func DefaultConfig() Config {
	return Config{
		Directory:  filepath.Join(os.TempDir(), "mediaflow"),
		FilePrefix: "output",
		Format:     "jsonl",
		Append:     true,
		BufferSize: 100,
	}
}

// Entry is the metadata line written for each record in json and jsonl
// formats
type Entry struct {
	TraceID          string         `json:"trace_id,omitempty"`
	MIME             string         `json:"mime,omitempty"`
	Offset           int            `json:"offset"`
	Size             int            `json:"size"`
	PayloadBytes     int            `json:"payload_bytes"`
	PresentationTime time.Duration  `json:"pts_ns"`
	Flags            string         `json:"flags"`
	Fields           map[string]any `json:"fields,omitempty"`
}

// Output is a sink node that commits records in Process. It writes one entry
// per record and reports ResultEndOfStream once an end-of-stream record has
// been written.
type Output struct {
	*node.Base
	cfg    Config
	logger *slog.Logger

	file   *os.File
	fileMu sync.Mutex

	buffer   [][]byte
	bufferMu sync.Mutex

	messagesWritten int64
	bytesWritten    int64
	errors          int64
}

// NewOutput creates a file sink
func NewOutput(name string, cfg Config, logger *slog.Logger) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Output{
		cfg:    cfg,
		logger: logger,
		buffer: make([][]byte, 0, cfg.BufferSize),
	}
	f.Base = node.NewBase(name, node.RoleSink, node.Hooks{Open: f.open, Close: f.close})
	return f, nil
}

// Factory builds a file sink from a node settings map
func Factory(name string, settings map[string]any, deps node.Dependencies) (node.Node, error) {
	d := DefaultConfig()
	cfg := Config{
		Directory:  config.GetString(settings, "directory", d.Directory),
		FilePrefix: config.GetString(settings, "file_prefix", d.FilePrefix),
		Format:     config.GetString(settings, "format", d.Format),
		Append:     config.GetBool(settings, "append", d.Append),
		BufferSize: config.GetInt(settings, "buffer_size", d.BufferSize),
	}
	return NewOutput(name, cfg, deps.Logger)
}

// Path returns the output file path
func (f *Output) Path() string {
	return filepath.Join(f.cfg.Directory, fmt.Sprintf("%s.%s", f.cfg.FilePrefix, f.cfg.Format))
}

func (f *Output) open() error {
	if err := os.MkdirAll(f.cfg.Directory, 0755); err != nil {
		return errors.WrapFatal(err, "Output", "Open", "create output directory")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if f.cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(f.Path(), flags, 0644)
	if err != nil {
		return errors.WrapFatal(err, "Output", "Open", "open output file")
	}

	f.fileMu.Lock()
	f.file = file
	f.fileMu.Unlock()

	f.logger.Info("File output opened",
		"output_file", f.Path(),
		"format", f.cfg.Format,
		"append", f.cfg.Append,
		"buffer_size", f.cfg.BufferSize)
	return nil
}

func (f *Output) close() error {
	f.flush()

	f.fileMu.Lock()
	defer f.fileMu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// Dispatch hands records through to Process
func (f *Output) Dispatch(_ context.Context, in, out *record.List) node.Result {
	if !f.IsOpened() {
		return node.ResultNotOpen
	}
	return node.Pass(in, out)
}

// Process writes each record and passes it back upstream for release
func (f *Output) Process(_ context.Context, in, out *record.List) node.Result {
	if !f.IsOpened() {
		return node.ResultNotOpen
	}

	res := node.ResultOK
	for {
		r, ok := in.Pop()
		if !ok {
			break
		}
		data, err := f.encode(r)
		if err != nil {
			atomic.AddInt64(&f.errors, 1)
			f.logger.Error("Failed to encode record", "error", err)
			res = node.Fold(res, node.ResultError)
		} else {
			f.enqueue(data)
		}
		if r.Flags().Has(record.FlagEndOfStream) {
			res = node.Fold(res, node.ResultEndOfStream)
		}
		out.Push(r)
	}

	if res != node.ResultOK {
		f.flush()
	}
	return res
}

// encode renders one record in the configured format
func (f *Output) encode(r *record.Record) ([]byte, error) {
	if f.cfg.Format == "raw" {
		buf, ok := r.Buffer()
		if !ok {
			return nil, nil
		}
		return append([]byte(nil), buf.Bytes()...), nil
	}

	entry := Entry{Flags: r.Flags().String(), Fields: map[string]any{}}
	if info, ok := r.Info(); ok {
		entry.Offset = info.Offset
		entry.Size = info.Size
		entry.PresentationTime = info.PresentationTime
	}
	if buf, ok := r.Buffer(); ok {
		entry.PayloadBytes = buf.Len()
	}
	if format, ok := r.MediaFormat(); ok {
		entry.MIME = format.MIME
	}
	entry.TraceID, _ = r.StringValue(record.KeyTraceID)

	for _, key := range r.Keys() {
		switch key {
		case record.KeyBuffer, record.KeyInfo, record.KeyFormat, record.KeyTraceID:
			continue
		}
		if v, ok := r.Get(key); ok {
			entry.Fields[key] = v
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	if f.cfg.Format == "json" {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (f *Output) enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	f.bufferMu.Lock()
	f.buffer = append(f.buffer, data)
	shouldFlush := len(f.buffer) >= f.cfg.BufferSize
	f.bufferMu.Unlock()

	if shouldFlush {
		f.flush()
	}
}

// flush writes buffered entries to the file
func (f *Output) flush() {
	f.bufferMu.Lock()
	if len(f.buffer) == 0 {
		f.bufferMu.Unlock()
		return
	}
	messages := f.buffer
	f.buffer = make([][]byte, 0, f.cfg.BufferSize)
	f.bufferMu.Unlock()

	f.fileMu.Lock()
	defer f.fileMu.Unlock()

	if f.file == nil {
		atomic.AddInt64(&f.errors, int64(len(messages)))
		f.logger.Error("File handle is nil during flush", "messages_lost", len(messages))
		return
	}

	for i, msg := range messages {
		n, err := f.file.Write(msg)
		if err != nil {
			atomic.AddInt64(&f.errors, 1)
			f.logger.Error("Failed to write record to file", "message_index", i, "error", err)
			continue
		}
		atomic.AddInt64(&f.messagesWritten, 1)
		atomic.AddInt64(&f.bytesWritten, int64(n))
	}
}

// Stats is a snapshot of sink counters
type Stats struct {
	MessagesWritten int64 `json:"messages_written"`
	BytesWritten    int64 `json:"bytes_written"`
	Errors          int64 `json:"errors"`
}

// Stats returns the sink counters
func (f *Output) Stats() Stats {
	return Stats{
		MessagesWritten: atomic.LoadInt64(&f.messagesWritten),
		BytesWritten:    atomic.LoadInt64(&f.bytesWritten),
		Errors:          atomic.LoadInt64(&f.errors),
	}
}
