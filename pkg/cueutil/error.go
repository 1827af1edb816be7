// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ValidationError represents a CUE validation error with context.
type ValidationError struct {
	// FilePath is the document being validated.
	FilePath string

	// CUEPath is the JSON-style path to the first invalid value (e.g., "vcpkg.libs[0].lib-name").
	CUEPath string

	// Message describes every problem found, one per line when there are several.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.CUEPath != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// FormatError converts a CUE error into a *ValidationError whose message lists
// each underlying problem prefixed by its path.
//
// Non-CUE errors are returned as a ValidationError carrying only the message.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return &ValidationError{FilePath: filePath, Message: err.Error()}
	}

	var (
		firstPath string
		lines     []string
	)
	for _, e := range cueErrors {
		pathStr := formatPath(errors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path at the start of the message.
		if pathStr != "" {
			if trimmed, ok := strings.CutPrefix(msg, strings.Join(errors.Path(e), ".")); ok {
				msg = strings.TrimSpace(strings.TrimPrefix(trimmed, ":"))
			}
		}

		if firstPath == "" {
			firstPath = pathStr
		}
		if pathStr != "" && len(cueErrors) > 1 {
			lines = append(lines, pathStr+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return &ValidationError{FilePath: filePath, CUEPath: firstPath, Message: lines[0]}
	}
	return &ValidationError{
		FilePath: filePath,
		CUEPath:  firstPath,
		Message:  "validation failed:\n  " + strings.Join(lines, "\n  "),
	}
}

// formatPath converts a CUE error path (["vcpkg", "libs", "0", "lib-name"]) to
// JSON-path notation ("vcpkg.libs[0].lib-name").
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			result.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			result.WriteString(".")
		}
		result.WriteString(part)
	}
	return result.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize verifies that data does not exceed maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
