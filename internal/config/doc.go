// Package config loads sassrun settings from a sandboxed Lua file, the
// environment and defaults.
//
// # Config file
//
// A config file assigns a global sass table. Every field is optional:
//
//	sass = {
//	  version = "1.62.0",
//	  cache_dir = "~/.sassrun/cache",
//	  url_template = "https://mirror.example/{version}/dart-sass-{version}-{os}-{arch}.{archiveExtension}",
//	  nested_dir = "dart-sass",
//	  args = { "input.scss", "output.css", platform.is_windows and "--no-unicode" or nil },
//	  watch = false,
//	  skip = false,
//	  verify = {
//	    checksum_url = "https://mirror.example/{version}/SHA256SUMS",
//	    signature_url = "https://mirror.example/{version}/dart-sass-{version}-{os}-{arch}.{archiveExtension}.sig",
//	    keyring = "~/.sassrun/release-keys.asc",
//	  },
//	  download = { retries = 0 },
//	}
//
// The read-only platform table from the platform package is injected before
// the file runs, so values can depend on the host:
//
//	sass = {
//	  version = platform.is_macos and "1.62.1" or "1.62.0",
//	}
//
// Unknown keys are logged as warnings and otherwise ignored. Wrong value types
// are errors.
//
// # Security Model
//
// The file runs in a gopher-lua VM without os, io, require, dofile, loadfile,
// load, loadstring, debug or collectgarbage. string, table and math remain.
// Files larger than MaxConfigSize are rejected, evaluation is bounded by
// ParseTimeout and the call stack by a fixed depth.
//
// # Precedence
//
// Load merges, from lowest to highest precedence:
//
//  1. Default()
//  2. the config file (--config, or ./sassrun.lua when present)
//  3. SASSRUN_VERSION, SASSRUN_CACHE_DIR, SASSRUN_SKIP, SASSRUN_WATCH
//
// The CLI applies its flags last. An empty environment variable is treated as
// unset.
package config
