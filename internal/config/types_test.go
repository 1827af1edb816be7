// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestManifestReaderIsValid(t *testing.T) {
	t.Parallel()

	for _, r := range []ManifestReader{ManifestReaderFile, ManifestReaderCargo} {
		if valid, errs := r.IsValid(); !valid {
			t.Errorf("%q.IsValid() = false, %v", r, errs)
		}
	}

	valid, errs := ManifestReader("metadata").IsValid()
	if valid || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidManifestReader) {
		t.Errorf("IsValid() = %v, %v", valid, errs)
	}
}

func TestConfigIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantFields int
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantFields: 1},
		{name: "blank binaries", mutate: func(c *Config) {
			c.PkgConfigBinary = " "
			c.CargoBinary = ""
		}, wantFields: 2},
		{name: "everything wrong", mutate: func(c *Config) {
			c.LogLevel = "x"
			c.ManifestReader = "y"
			c.PkgConfigBinary = ""
			c.CargoBinary = ""
		}, wantFields: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			valid, errs := cfg.IsValid()
			if tt.wantFields == 0 {
				if !valid {
					t.Errorf("IsValid() errors = %v", errs)
				}
				return
			}

			var cfgErr *InvalidConfigError
			if valid || !errors.As(errs[0], &cfgErr) {
				t.Fatalf("IsValid() = %v, %v", valid, errs)
			}
			if len(cfgErr.FieldErrors) != tt.wantFields {
				t.Errorf("field errors = %v, want %d", cfgErr.FieldErrors, tt.wantFields)
			}
		})
	}
}
