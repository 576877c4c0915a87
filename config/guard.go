package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/mediaflow/errors"
)

// Limits on what Load accepts
const (
	maxConfigBytes = 4 << 20
	maxNesting     = 64
	maxEnvValueLen = 4096
)

// readConfigFile reads a task document after checking its name, type and size.
// Relative paths must stay under the working directory.
func readConfigFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "config", "readConfigFile", "empty path")
	}
	if !filepath.IsAbs(path) && !filepath.IsLocal(path) {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "readConfigFile",
			fmt.Sprintf("path %q escapes the working directory", path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "readConfigFile",
			fmt.Sprintf("unsupported extension on %q", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "readConfigFile", "open")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "config", "readConfigFile", "stat")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "readConfigFile",
			fmt.Sprintf("%q is not a regular file", path))
	}

	// One byte past the limit tells an oversized file apart from an exact fit.
	data, err := io.ReadAll(io.LimitReader(f, maxConfigBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "config", "readConfigFile", "read")
	}
	if len(data) > maxConfigBytes {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "readConfigFile",
			fmt.Sprintf("file larger than %d bytes", maxConfigBytes))
	}
	return data, nil
}

// checkNesting walks the JSON token stream and rejects documents nested
// deeper than maxNesting or that are not well formed.
func checkNesting(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			depth++
			if depth > maxNesting {
				return fmt.Errorf("nesting deeper than %d", maxNesting)
			}
		case '}', ']':
			depth--
		}
	}
}

// checkEnvValue rejects override values that are oversized or carry NUL bytes
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvValueLen {
		return fmt.Errorf("%s: value longer than %d bytes", key, maxEnvValueLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s: value contains a NUL byte", key)
	}
	return nil
}
