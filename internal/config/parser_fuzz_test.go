package config

import (
	"context"
	"testing"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/platform"
)

func FuzzParser_ParseString(f *testing.F) {
	f.Add(`sass = { version = "1.62.0" }`)
	f.Add(`sass = { args = { "a.scss", platform.is_windows and "b" or nil } }`)
	f.Add(`sass = { verify = { checksum_url = "https://x/{version}" } }`)

	parser := NewParser(platform.Descriptor{OS: platform.Linux, Arch: platform.X86_64}, nil, nil)

	f.Fuzz(func(t *testing.T, luaCode string) {
		_, _ = parser.ParseString(context.Background(), luaCode)
	})
}

func FuzzGenerator_QuoteLuaString(f *testing.F) {
	f.Add("hello")
	f.Add(`say "hello"`)
	f.Add("line1\nline2")
	f.Add(`C:\\Users\\test`)

	gen := NewGenerator()

	f.Fuzz(func(t *testing.T, input string) {
		quoted := gen.quoteLuaString(input)
		if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
			t.Errorf("quoteLuaString(%q) = %q, invalid format", input, quoted)
		}
	})
}
