// SPDX-License-Identifier: MPL-2.0

// Package buildkit decides how a build script makes a native library
// available and carries out that decision.
//
// A build runs in three steps. The Loader in package manifest reads the
// package's buildkit section into a buildconf.Config. ResolveMode picks the
// BuildMode from the declared default and the target triple. A Dispatcher
// then either probes the system (pkg-config or vcpkg) and emits the resulting
// directives, or hands a VendoredBuildContext to the caller's VendorHandler.
//
// BuildKit bundles the three steps behind one fallible constructor:
//
//	bk, err := buildkit.FromManifest(ctx)
//	if err != nil {
//		return err
//	}
//	return bk.Build(ctx, func(vc buildkit.VendoredBuildContext) error {
//		return compile(vc.SourcePath())
//	})
//
// Nothing is retried and no mode falls back to another; every failure is
// returned to the caller and can be sorted with Classify.
package buildkit
