// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the buildkit command-line interface.
//
// Standard output is reserved for build directives and command results;
// logs, warnings and error cards go to standard error.
package cmd
