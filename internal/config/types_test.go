package config

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "prerelease version", mutate: func(c *Config) { c.Version = "1.63.0-beta.1" }},
		{name: "explicit extension in template", mutate: func(c *Config) {
			c.URLTemplate = "https://mirror.example/sass-{version}-{os}-{arch}.tar.gz"
		}},
		{name: "legacy sassVersion placeholder", mutate: func(c *Config) {
			c.URLTemplate = "https://github.com/sass/dart-sass/releases/download/{sassVersion}/dart-sass-{sassVersion}-{os}-{arch}.{archiveExtension}"
		}},
		{name: "query after extension", mutate: func(c *Config) {
			c.URLTemplate = "https://mirror.example/sass-{version}-{os}-{arch}.tar.gz?raw=1"
		}},
		{name: "nested path", mutate: func(c *Config) { c.NestedDir = "dist/dart-sass" }},
		{name: "verification", mutate: func(c *Config) {
			c.Verify = VerifyConfig{SignatureURL: "https://x/{version}.sig", Keyring: "keys.asc"}
		}},
		{name: "max retries", mutate: func(c *Config) { c.Download.Retries = MaxRetries }},

		{name: "empty version", mutate: func(c *Config) { c.Version = "" }, wantErr: true, errMsg: "version"},
		{name: "version with separator", mutate: func(c *Config) { c.Version = "1.62/../../x" }, wantErr: true, errMsg: "invalid version"},
		{name: "version with dots only", mutate: func(c *Config) { c.Version = "1..2" }, wantErr: true, errMsg: "invalid version"},
		{name: "version too long", mutate: func(c *Config) { c.Version = strings.Repeat("1", 65) }, wantErr: true, errMsg: "too long"},
		{name: "empty template", mutate: func(c *Config) { c.URLTemplate = " " }, wantErr: true, errMsg: "url_template"},
		{name: "template without archive suffix", mutate: func(c *Config) {
			c.URLTemplate = "https://mirror.example/{version}/sass.tar.xz"
		}, wantErr: true, errMsg: "url_template"},
		{name: "extension only in query", mutate: func(c *Config) {
			c.URLTemplate = "https://mirror.example/download?file=sass-{version}.{archiveExtension}"
		}, wantErr: true, errMsg: "url_template"},
		{name: "empty nested dir", mutate: func(c *Config) { c.NestedDir = "" }, wantErr: true, errMsg: "nested_dir"},
		{name: "absolute nested dir", mutate: func(c *Config) { c.NestedDir = "/usr/bin" }, wantErr: true, errMsg: "must be relative"},
		{name: "nested dir traversal", mutate: func(c *Config) { c.NestedDir = "dart-sass/../../bin" }, wantErr: true, errMsg: "path traversal"},
		{name: "backslash traversal", mutate: func(c *Config) { c.NestedDir = `..\bin` }, wantErr: true, errMsg: "path traversal"},
		{name: "too many args", mutate: func(c *Config) { c.Args = make([]string, MaxArgCount+1) }, wantErr: true, errMsg: "too many arguments"},
		{name: "signature without keyring", mutate: func(c *Config) {
			c.Verify.SignatureURL = "https://x/{version}.sig"
		}, wantErr: true, errMsg: "verify.keyring"},
		{name: "negative retries", mutate: func(c *Config) { c.Download.Retries = -1 }, wantErr: true, errMsg: "download.retries"},
		{name: "too many retries", mutate: func(c *Config) { c.Download.Retries = MaxRetries + 1 }, wantErr: true, errMsg: "download.retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	withField := &ValidationError{Field: "version", Message: "cannot be empty"}
	if got := withField.Error(); got != "config validation failed for version: cannot be empty" {
		t.Errorf("Error() = %q", got)
	}

	bare := &ValidationError{Message: "broken"}
	if got := bare.Error(); got != "config validation failed: broken" {
		t.Errorf("Error() = %q", got)
	}
}
