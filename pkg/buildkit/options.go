// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/fetch"
	"github.com/invowk/buildkit/pkg/manifest"
	"github.com/invowk/buildkit/pkg/probe"
)

type (
	// Option configures a BuildKit.
	Option func(*options)

	options struct {
		env         buildenv.Environment
		reader      manifest.Reader
		pkgConfig   probe.PkgConfigProber
		vcpkg       probe.VcpkgProber
		out         io.Writer
		logger      *log.Logger
		fetcher     fetch.Fetcher
		stagingRoot string
	}
)

// WithEnvironment reads build variables from env instead of the process environment.
func WithEnvironment(env buildenv.Environment) Option {
	return func(o *options) { o.env = env }
}

// WithReader reads the manifest with r instead of parsing it from disk.
func WithReader(r manifest.Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithPkgConfigProber replaces the pkg-config executable.
func WithPkgConfigProber(p probe.PkgConfigProber) Option {
	return func(o *options) { o.pkgConfig = p }
}

// WithVcpkgProber replaces the vcpkg tree lookup.
func WithVcpkgProber(p probe.VcpkgProber) Option {
	return func(o *options) { o.vcpkg = p }
}

// WithDirectiveWriter sends directives to w instead of standard output.
func WithDirectiveWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLogger sets the logger for progress and debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFetcher stages remote vendored sources with f before a vendored build.
// Without a fetcher the staging directory must already be populated.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithStagingRoot sets the directory remote sources are staged below.
func WithStagingRoot(dir string) Option {
	return func(o *options) { o.stagingRoot = dir }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.env == nil {
		o.env = buildenv.OS()
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}
