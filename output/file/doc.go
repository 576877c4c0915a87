// Package file provides a sink node that writes records to disk.
//
// The sink commits records during the process pass, after every node
// upstream has seen them. Each record becomes one entry in the output file
// named <file_prefix>.<format> inside directory:
//
//   - jsonl: one JSON object per line with timing, flags, MIME type, trace
//     ID and any extra record fields
//   - json: the same object, indented
//   - raw: the payload bytes only, concatenated
//
// Entries are buffered in memory and written once buffer_size entries are
// pending, when an end-of-stream or failing record is seen, and on Close.
//
// Example node settings:
//
//	- name: archive
//	  type: file
//	  role: sink
//	  config:
//	    directory: /var/lib/mediaflow
//	    file_prefix: camera
//	    format: jsonl
//	    append: false
//	    buffer_size: 50
//
// Once a record flagged end-of-stream is written, Process returns
// ResultEndOfStream so the pipeline stops after the current iteration.
package file
