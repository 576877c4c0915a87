package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pkg/buffer"
	"github.com/c360/mediaflow/record"
)

func frame(seq int, payload string, flags record.Flags) *record.Record {
	r := record.New()
	b := buffer.NewBuffer(len(payload))
	_, _ = b.Write([]byte(payload))
	r.SetBuffer(b)
	r.SetInfo(record.Info{Offset: seq * len(payload), Size: len(payload),
		PresentationTime: time.Duration(seq) * time.Millisecond, Flags: flags})
	r.SetMediaFormat(record.Format{MIME: "video/x-raw"})
	r.Set(record.KeyTraceID, "trace-"+payload)
	r.Set("counter", seq+1)
	return r
}

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	var entries []Entry
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"missing directory", Config{Format: "jsonl"}, false},
		{"bad format", Config{Directory: "/tmp", Format: "csv"}, false},
		{"negative buffer", Config{Directory: "/tmp", Format: "raw", BufferSize: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestJSONLinesUntilEndOfStream(t *testing.T) {
	dir := t.TempDir()
	out, err := NewOutput("archive", Config{Directory: dir, FilePrefix: "cam", Format: "jsonl", BufferSize: 10}, nil)
	require.NoError(t, err)
	require.NoError(t, out.Open())
	ctx := context.Background()

	in := record.NewList(2)
	in.Push(frame(0, "aa", record.FlagKeyFrame), frame(1, "bb", 0))
	back := record.NewList(2)
	assert.Equal(t, node.ResultOK, out.Process(ctx, in, back))
	assert.Equal(t, 2, back.Len())
	back.Release()

	// still buffered
	assert.Equal(t, int64(0), out.Stats().MessagesWritten)

	in.Push(frame(2, "cc", record.FlagEndOfStream))
	assert.Equal(t, node.ResultEndOfStream, out.Process(ctx, in, back))
	back.Release()
	assert.Equal(t, int64(3), out.Stats().MessagesWritten)

	require.NoError(t, out.Close())

	entries := readLines(t, filepath.Join(dir, "cam.jsonl"))
	require.Len(t, entries, 3)
	assert.Equal(t, "trace-aa", entries[0].TraceID)
	assert.Equal(t, "key_frame", entries[0].Flags)
	assert.Equal(t, "video/x-raw", entries[0].MIME)
	assert.Equal(t, 2, entries[1].PayloadBytes)
	assert.Equal(t, 2*time.Millisecond, entries[2].PresentationTime)
	assert.Equal(t, "end_of_stream", entries[2].Flags)
	assert.Equal(t, float64(3), entries[2].Fields["counter"])
	assert.Equal(t, out.Path(), filepath.Join(dir, "cam.jsonl"))
}

func TestRawFormatAndCloseFlush(t *testing.T) {
	dir := t.TempDir()
	out, err := NewOutput("raw", Config{Directory: dir, FilePrefix: "payload", Format: "raw", BufferSize: 100}, nil)
	require.NoError(t, err)
	require.NoError(t, out.Open())

	cfgRec := record.New()
	cfgRec.SetInfo(record.Info{Flags: record.FlagConfig})

	in := record.NewList(3)
	in.Push(cfgRec, frame(0, "abc", 0), frame(1, "def", 0))
	back := record.NewList(3)
	assert.Equal(t, node.ResultOK, out.Process(context.Background(), in, back))
	back.Release()

	require.NoError(t, out.Close())

	data, err := os.ReadFile(filepath.Join(dir, "payload.raw"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
	assert.Equal(t, int64(2), out.Stats().MessagesWritten)
	assert.Equal(t, int64(6), out.Stats().BytesWritten)
}

func TestAppendVersusTruncate(t *testing.T) {
	dir := t.TempDir()
	write := func(appendMode bool) {
		out, err := NewOutput("f", Config{Directory: dir, FilePrefix: "log", Format: "jsonl", Append: appendMode}, nil)
		require.NoError(t, err)
		require.NoError(t, out.Open())
		in := record.NewList(1)
		in.Push(frame(0, "x", 0))
		out.Process(context.Background(), in, record.NewList(1))
		require.NoError(t, out.Close())
	}

	write(true)
	write(true)
	assert.Len(t, readLines(t, filepath.Join(dir, "log.jsonl")), 2)

	write(false)
	assert.Len(t, readLines(t, filepath.Join(dir, "log.jsonl")), 1)
}

func TestNotOpen(t *testing.T) {
	out, err := NewOutput("f", Config{Directory: t.TempDir(), Format: "jsonl"}, nil)
	require.NoError(t, err)
	assert.Equal(t, node.ResultNotOpen, out.Process(context.Background(), record.NewList(0), record.NewList(0)))
	assert.Equal(t, node.ResultNotOpen, out.Dispatch(context.Background(), record.NewList(0), record.NewList(0)))
}

func TestOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	out, err := NewOutput("f", Config{Directory: filepath.Join(blocker, "sub"), Format: "jsonl"}, nil)
	require.NoError(t, err)
	err = out.Open()
	require.Error(t, err)
	assert.False(t, out.IsOpened())
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()
	n, err := Factory("sink", map[string]any{"directory": dir, "format": "raw"}, node.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, node.RoleSink, n.Role())
	assert.Equal(t, filepath.Join(dir, "output.raw"), n.(*Output).Path())

	_, err = Factory("sink", map[string]any{"format": "xml"}, node.Dependencies{})
	assert.Error(t, err)
}
