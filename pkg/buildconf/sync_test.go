// SPDX-License-Identifier: MPL-2.0

package buildconf

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the JSON tags of the raw decode structs in step with the
// field names of buildkit_schema.cue. A mismatch would silently drop values.

func cueFields(t *testing.T, def string) []string {
	t.Helper()

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(buildkitSchema)
	if schema.Err() != nil {
		t.Fatalf("schema does not compile: %v", schema.Err())
	}
	val := schema.LookupPath(cue.ParsePath(def))
	if val.Err() != nil {
		t.Fatalf("definition %s not found: %v", def, val.Err())
	}

	iter, err := val.Fields(cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate %s: %v", def, err)
	}
	var fields []string
	for iter.Next() {
		name := strings.TrimSuffix(iter.Selector().String(), "?")
		fields = append(fields, strings.Trim(name, `"`))
	}
	slices.Sort(fields)
	return fields
}

func jsonTags(typ reflect.Type) []string {
	tags := map[string]bool{}
	for i := range typ.NumField() {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			tags[name] = true
		}
	}
	return slices.Sorted(maps.Keys(tags))
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{def: "#BuildKit", typ: reflect.TypeFor[rawConfig]()},
		{def: "#PkgConfig", typ: reflect.TypeFor[rawPkgConfig]()},
		{def: "#VersionReq", typ: reflect.TypeFor[rawVersion]()},
		{def: "#Vcpkg", typ: reflect.TypeFor[rawVcpkg]()},
		{def: "#LibName", typ: reflect.TypeFor[rawLibName]()},
		{def: "#VendoredSource", typ: reflect.TypeFor[rawVendoredSource]()},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()

			cueNames := cueFields(t, tt.def)
			goNames := jsonTags(tt.typ)
			if !slices.Equal(cueNames, goNames) {
				t.Errorf("%s fields %v do not match %s JSON tags %v", tt.def, cueNames, tt.typ.Name(), goNames)
			}
		})
	}
}
