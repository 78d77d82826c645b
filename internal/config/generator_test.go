package config

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestGenerator_Generate_Defaults(t *testing.T) {
	lua, err := NewGenerator().Generate(Default())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(lua, "sass = {") {
		t.Error("generated Lua missing 'sass = {'")
	}
	if !strings.Contains(lua, `version = "1.62.0",`) {
		t.Error("generated Lua should pin the version")
	}
	if !strings.Contains(lua, `-- url_template = "https://github.com/sass/dart-sass/`) {
		t.Error("default url_template should be written as a comment")
	}
	if strings.Contains(lua, "verify") {
		t.Error("empty verify section should be omitted")
	}
}

func TestGenerator_RoundTrip(t *testing.T) {
	configs := []*Config{
		Default(),
		{
			Version:     "1.63.6",
			CacheDir:    `C:\Users\dev\sass "cache"`,
			URLTemplate: "https://mirror.example/{version}/sass-{os}-{arch}.{archiveExtension}",
			NestedDir:   "dist",
			Args:        []string{"in.scss", "out dir/out.css", "--style=compressed"},
			Watch:       true,
			Skip:        true,
			Verify: VerifyConfig{
				ChecksumURL:  "https://mirror.example/{version}/SHA256SUMS",
				SignatureURL: "https://mirror.example/{version}/sass.sig",
				Keyring:      "keys.asc",
			},
			Download: DownloadConfig{Retries: 2},
		},
	}

	gen := NewGenerator()
	parser := NewParser(linuxX64, nil, nil)

	for _, cfg := range configs {
		lua, err := gen.Generate(cfg)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		parsed, err := parser.ParseString(context.Background(), lua)
		if err != nil {
			t.Fatalf("ParseString() error = %v\n%s", err, lua)
		}
		if !reflect.DeepEqual(parsed, cfg) {
			t.Errorf("round trip mismatch\ngot  %+v\nwant %+v\n%s", parsed, cfg, lua)
		}
	}
}

func TestGenerator_Generate_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Version = ""

	if _, err := NewGenerator().Generate(cfg); err == nil {
		t.Error("Generate() should reject an invalid config")
	}
}

func TestGenerator_QuoteLuaString(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		input string
		want  string
	}{
		{"simple", `"simple"`},
		{`with "quotes"`, `"with \"quotes\""`},
		{`C:\path`, `"C:\\path"`},
		{"line1\nline2", `"line1\nline2"`},
		{"tab\there", `"tab\there"`},
	}

	for _, tt := range tests {
		if got := gen.quoteLuaString(tt.input); got != tt.want {
			t.Errorf("quoteLuaString(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
