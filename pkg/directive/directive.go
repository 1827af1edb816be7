// SPDX-License-Identifier: MPL-2.0

// Package directive writes build-system directives: the line-oriented
// "cargo:key=value" instructions a build script prints on standard output to
// declare rebuild triggers, include paths and link settings.
package directive

import (
	"fmt"
	"io"
	"strings"
)

const prefix = "cargo:"

// Directive keys understood by the host build system.
const (
	KeyRerunIfEnvChanged = "rerun-if-env-changed"
	KeyInclude           = "include"
	KeyLinkSearch        = "rustc-link-search"
	KeyLinkLib           = "rustc-link-lib"
	KeyWarning           = "warning"
)

// Emitter writes directives to an underlying writer. The first write error is
// kept and every later call becomes a no-op; check Err once emission is done.
type Emitter struct {
	w   io.Writer
	err error
}

// NewEmitter returns an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes a single key=value directive. Newlines in value are replaced by
// spaces since each directive must fit on one line.
func (e *Emitter) Emit(key, value string) {
	if e.err != nil {
		return
	}
	value = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value)
	if _, err := fmt.Fprintf(e.w, "%s%s=%s\n", prefix, key, value); err != nil {
		e.err = fmt.Errorf("failed to write %s directive: %w", key, err)
	}
}

// RerunIfEnvChanged declares that a change of the variable name must re-run the build script.
func (e *Emitter) RerunIfEnvChanged(name string) { e.Emit(KeyRerunIfEnvChanged, name) }

// Include publishes a discovered include directory.
func (e *Emitter) Include(path string) { e.Emit(KeyInclude, path) }

// LinkSearch adds a native library search directory.
func (e *Emitter) LinkSearch(path string) { e.Emit(KeyLinkSearch, "native="+path) }

// LinkLib links the named native library.
func (e *Emitter) LinkLib(name string) { e.Emit(KeyLinkLib, name) }

// Warning surfaces a message in the host build output.
func (e *Emitter) Warning(msg string) { e.Emit(KeyWarning, msg) }

// Err returns the first write error, if any.
func (e *Emitter) Err() error { return e.err }
