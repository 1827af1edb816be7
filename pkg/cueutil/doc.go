// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation and decoding utilities.
//
// Documents reach this package in two forms: raw CUE source (the helper's own
// configuration file) and already-parsed key/value trees (the manifest section
// produced by a TOML or JSON reader). Both follow the same flow:
//
//  1. Compile the embedded schema and look up the root definition
//  2. Compile (or encode) the user data and unify it with the definition
//  3. Validate and decode into a Go struct
//
// # Usage
//
//	//go:embed buildkit_schema.cue
//	var schema []byte
//
//	raw, err := cueutil.DecodeTree[rawConfig](schema, tree, "#BuildKit",
//	    cueutil.WithFilename("Cargo.toml"),
//	)
//	if err != nil {
//	    return nil, err // *cueutil.ValidationError with a JSON-style path
//	}
package cueutil
