// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	ManifestProblemId Id = iota + 1
	EnvironmentMissingId
	RequirementMissingId
	PkgConfigProbeFailedId
	VcpkgProbeFailedId
	FetchFailedId
	VendoredBuildFailedId
	SettingsLoadFailedId
)

type (
	// Id identifies an issue in the catalog.
	Id int

	// MarkdownMsg is Markdown text rendered for the terminal.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is the long-form guidance for one class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue with the glamour style at stylePath
// ("auto", "dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	manifestProblemIssue = &Issue{
		id: ManifestProblemId,
		mdMsg: `
# The build configuration could not be loaded

buildkit reads its settings from the ` + "`[package.metadata.buildkit]`" + ` table of the
package's Cargo.toml.

## Things you can try
- Check that the table exists and uses kebab-case keys:
~~~toml
[package.metadata.buildkit]
default-mode = "pkg-config"
pkg-config = { name = "libgit2", version = { min = "1.7.0", max = "1.8.0" } }
vendored-source = { path = "vendor/libgit2" }
~~~
- A version constraint takes exactly one of ` + "`{min, max}`, `{min}`, `{max}` or `{exact}`" + `.
- A vendored source is ` + "`{url, hash}`, `{git, ref, hash}` or `{path}`" + `; the path must be relative.
- Use ` + "`<LIB>_SOURCE_DIR`" + ` for a host-specific absolute source directory.`,
		docLinks: []HttpLink{"https://doc.rust-lang.org/cargo/reference/manifest.html#the-metadata-table"},
	}

	environmentMissingIssue = &Issue{
		id: EnvironmentMissingId,
		mdMsg: `
# A build variable is missing

buildkit runs inside a build script and relies on the variables Cargo sets for it:
` + "`CARGO_MANIFEST_DIR`, `CARGO_PKG_NAME`, `CARGO_PKG_VERSION`" + ` and, unless the build is
vendored, ` + "`TARGET`" + `.

## Things you can try
- Run the command from a build script, or export the variables by hand:
~~~
$ TARGET=x86_64-unknown-linux-gnu CARGO_MANIFEST_DIR=$PWD buildkit mode
~~~`,
		docLinks: []HttpLink{"https://doc.rust-lang.org/cargo/reference/environment-variables.html"},
	}

	requirementMissingIssue = &Issue{
		id: RequirementMissingId,
		mdMsg: `
# The resolved build mode has no declaration

The mode picked for this target needs its own entry in the buildkit table:
` + "`pkg-config`" + ` on most targets, ` + "`vcpkg`" + ` on ` + "`*-windows-msvc`" + `, and
` + "`vendored-source`" + ` for vendored builds.

## Things you can try
- Add the missing entry, or set ` + "`default-mode = \"vendored\"`" + ` to always build the bundled copy.
- Run ` + "`buildkit mode`" + ` to see which mode is resolved for the current target.`,
	}

	pkgConfigProbeFailedIssue = &Issue{
		id: PkgConfigProbeFailedId,
		mdMsg: `
# pkg-config could not find the library

## Things you can try
- Install the development package for the library (e.g. ` + "`libgit2-dev`" + `).
- Point ` + "`PKG_CONFIG_PATH`" + ` at the directory holding its ` + "`.pc`" + ` file.
- Check the version constraint: ` + "`max`" + ` is exclusive.
- Set ` + "`<LIB>_SOURCE_DIR`" + ` or switch to ` + "`default-mode = \"vendored\"`" + `.`,
		docLinks: []HttpLink{"https://www.freedesktop.org/wiki/Software/pkg-config/"},
	}

	vcpkgProbeFailedIssue = &Issue{
		id: VcpkgProbeFailedId,
		mdMsg: `
# vcpkg could not provide the library

## Things you can try
- Set ` + "`VCPKG_ROOT`" + ` (or ` + "`vcpkg_root`" + ` in the buildkit settings) to your vcpkg checkout.
- Install the port for the target triplet:
~~~
$ vcpkg install libgit2:x64-windows-static-md
~~~
- Use ` + "`VCPKGRS_TRIPLET`" + ` to select a different triplet.`,
		docLinks: []HttpLink{"https://learn.microsoft.com/vcpkg/"},
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# The vendored source could not be fetched

## Things you can try
- Check network access to the archive or repository URL.
- Verify the declared ` + "`hash`" + `: archives use ` + "`sha256:<hex>`" + `, repositories a commit prefix.
- For private repositories set ` + "`GITHUB_TOKEN`, `GITLAB_TOKEN` or `GIT_TOKEN`" + `.
- Fetch the source yourself and set ` + "`<LIB>_SOURCE_DIR`" + `.`,
	}

	vendoredBuildFailedIssue = &Issue{
		id: VendoredBuildFailedId,
		mdMsg: `
# The vendored build failed

The build script supplied for the vendored source reported an error. Its output above
explains what went wrong; buildkit does not retry or fall back to another mode.`,
	}

	settingsLoadFailedIssue = &Issue{
		id: SettingsLoadFailedId,
		mdMsg: `
# buildkit settings are invalid

## Things you can try
- Check the CUE syntax of ` + "`config.cue`" + ` or ` + "`buildkit.cue`" + `.
- Valid keys: ` + "`log_level`, `staging_dir`, `manifest_reader`, `pkg_config_binary`, `cargo_binary`, `vcpkg_root`, `fetch`" + `.
- ` + "`BUILDKIT_*`" + ` environment variables override the files.`,
	}

	issues = map[Id]*Issue{
		manifestProblemIssue.Id():      manifestProblemIssue,
		environmentMissingIssue.Id():   environmentMissingIssue,
		requirementMissingIssue.Id():   requirementMissingIssue,
		pkgConfigProbeFailedIssue.Id(): pkgConfigProbeFailedIssue,
		vcpkgProbeFailedIssue.Id():     vcpkgProbeFailedIssue,
		fetchFailedIssue.Id():          fetchFailedIssue,
		vendoredBuildFailedIssue.Id():  vendoredBuildFailedIssue,
		settingsLoadFailedIssue.Id():   settingsLoadFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
