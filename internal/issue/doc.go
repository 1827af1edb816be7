// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into messages a package author can act on:
// ActionableError adds an operation, a resource and suggestions to an error,
// and the Issue catalog holds longer Markdown guidance per failure class.
package issue
