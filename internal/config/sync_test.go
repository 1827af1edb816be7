// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// TestConfigSchemaSync keeps the #Config schema and the Config struct tags aligned.
func TestConfigSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	iter, err := schema.Fields(cue.Optional(true))
	if err != nil {
		t.Fatal(err)
	}
	var cueFields []string
	for iter.Next() {
		cueFields = append(cueFields, iter.Selector().Unquoted())
	}

	var goFields []string
	typ := reflect.TypeFor[Config]()
	for i := range typ.NumField() {
		tag, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		goFields = append(goFields, tag)
	}

	slices.Sort(cueFields)
	slices.Sort(goFields)
	if !slices.Equal(cueFields, goFields) {
		t.Errorf("schema fields %v do not match Config json tags %v", cueFields, goFields)
	}
}
