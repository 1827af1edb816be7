// SPDX-License-Identifier: MPL-2.0

package buildconf

import "fmt"

type (
	// VersionConstraint restricts which installed versions of a library are
	// acceptable. Implementations are VersionRange, MinVersion, MaxVersion and
	// ExactVersion; the set is closed.
	VersionConstraint interface {
		fmt.Stringer
		isVersionConstraint()
	}

	// VersionRange accepts versions v with Min <= v < Max.
	VersionRange struct {
		Min string
		Max string
	}

	// MinVersion accepts versions v with Min <= v.
	MinVersion struct {
		Min string
	}

	// MaxVersion accepts versions v with v < Max.
	MaxVersion struct {
		Max string
	}

	// ExactVersion accepts only Version.
	ExactVersion struct {
		Version string
	}
)

func (VersionRange) isVersionConstraint() {}
func (MinVersion) isVersionConstraint()   {}
func (MaxVersion) isVersionConstraint()   {}
func (ExactVersion) isVersionConstraint() {}

func (r VersionRange) String() string { return fmt.Sprintf(">= %s, < %s", r.Min, r.Max) }
func (m MinVersion) String() string   { return ">= " + m.Min }
func (m MaxVersion) String() string   { return "< " + m.Max }
func (e ExactVersion) String() string { return "= " + e.Version }
