package config

import (
	"bytes"
	"fmt"
	"strings"
)

// Generator writes a Config back out as a sassrun.lua file.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate renders cfg as a sass table. Fields equal to their defaults are
// written as comments so the file documents them without pinning them.
func (g *Generator) Generate(cfg *Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	def := Default()

	var buf bytes.Buffer
	buf.WriteString("-- sassrun configuration\n")
	buf.WriteString("-- The read-only platform table (platform.os, platform.is_windows, ...) is available here.\n\n")
	buf.WriteString(luaGlobalSass + " = {\n")

	g.writeString(&buf, 1, luaFieldVersion, cfg.Version, false)
	g.writeString(&buf, 1, luaFieldCacheDir, cfg.CacheDir, cfg.CacheDir == "")
	g.writeString(&buf, 1, luaFieldURLTemplate, cfg.URLTemplate, cfg.URLTemplate == def.URLTemplate)
	g.writeString(&buf, 1, luaFieldNestedDir, cfg.NestedDir, cfg.NestedDir == def.NestedDir)
	g.writeArgs(&buf, cfg.Args)
	g.writeBool(&buf, luaFieldWatch, cfg.Watch)
	g.writeBool(&buf, luaFieldSkip, cfg.Skip)

	if cfg.Verify != (VerifyConfig{}) {
		g.line(&buf, 1, luaFieldVerify+" = {")
		g.writeString(&buf, 2, luaFieldChecksumURL, cfg.Verify.ChecksumURL, cfg.Verify.ChecksumURL == "")
		g.writeString(&buf, 2, luaFieldSigURL, cfg.Verify.SignatureURL, cfg.Verify.SignatureURL == "")
		g.writeString(&buf, 2, luaFieldKeyring, cfg.Verify.Keyring, cfg.Verify.Keyring == "")
		g.line(&buf, 1, "},")
	}

	if cfg.Download.Retries > 0 {
		g.line(&buf, 1, fmt.Sprintf("%s = { %s = %d },", luaFieldDownload, luaFieldRetries, cfg.Download.Retries))
	}

	buf.WriteString("}\n")

	return buf.String(), nil
}

func (g *Generator) line(buf *bytes.Buffer, depth int, s string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(s)
	buf.WriteString("\n")
}

// writeString writes name = "value". commented fields are emitted as Lua
// comments; empty commented values are left out entirely.
func (g *Generator) writeString(buf *bytes.Buffer, depth int, name, value string, commented bool) {
	if commented && value == "" {
		return
	}
	entry := fmt.Sprintf("%s = %s,", name, g.quoteLuaString(value))
	if commented {
		entry = "-- " + entry
	}
	g.line(buf, depth, entry)
}

func (g *Generator) writeBool(buf *bytes.Buffer, name string, value bool) {
	if value {
		g.line(buf, 1, name+" = true,")
	}
}

func (g *Generator) writeArgs(buf *bytes.Buffer, args []string) {
	if len(args) == 0 {
		g.line(buf, 1, `-- args = { "input.scss", "output.css" },`)
		return
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = g.quoteLuaString(a)
	}
	g.line(buf, 1, fmt.Sprintf("%s = { %s },", luaFieldArgs, strings.Join(quoted, ", ")))
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}
