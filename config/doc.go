// Package config loads and validates task graph documents.
//
// A task config names the task, its retry and buffer cache settings, the
// shared source nodes opened once for the whole task, and the pipelines
// built from node factories. Files may be JSON or YAML:
//
//	name: camera-upload
//	retry:
//	  step: 1ms
//	  max_sleep: 20ms
//	  low_threshold: 2
//	  high_threshold: 10
//	buffer_cache:
//	  slots: 16
//	sources:
//	  - name: camera
//	    type: generator
//	    config: {count: 300, fps: 30}
//	pipelines:
//	  - name: record
//	    nodes:
//	      - {source: camera}
//	      - {name: stamp, type: stamp, role: connector}
//	      - {name: out, type: file, role: sink, config: {path: out.jsonl}}
//
// Load applies MEDIAFLOW_* environment overrides and defaults before
// validating. Node settings are plain maps; use GetString, GetInt, GetBool
// and GetDuration to read them safely.
package config
