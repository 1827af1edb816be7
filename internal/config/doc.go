// SPDX-License-Identifier: MPL-2.0

// Package config handles buildkit's own settings using Viper with CUE as the file format.
//
// Settings are read, in increasing precedence, from built-in defaults, the user
// config file (~/.config/buildkit/config.cue or the platform equivalent), a
// buildkit.cue next to the package being built, and BUILDKIT_* environment
// variables. Files are validated against config_schema.cue before they are
// merged; environment values are checked by Config.IsValid.
package config
