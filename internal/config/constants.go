package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalSass       = "sass"
	luaFieldVersion     = "version"
	luaFieldCacheDir    = "cache_dir"
	luaFieldURLTemplate = "url_template"
	luaFieldNestedDir   = "nested_dir"
	luaFieldArgs        = "args"
	luaFieldWatch       = "watch"
	luaFieldSkip        = "skip"
	luaFieldVerify      = "verify"
	luaFieldChecksumURL = "checksum_url"
	luaFieldSigURL      = "signature_url"
	luaFieldKeyring     = "keyring"
	luaFieldDownload    = "download"
	luaFieldRetries     = "retries"
)

// Environment overrides
const (
	EnvVersion  = "SASSRUN_VERSION"
	EnvCacheDir = "SASSRUN_CACHE_DIR"
	EnvSkip     = "SASSRUN_SKIP"
	EnvWatch    = "SASSRUN_WATCH"
)

// Resource limits
const (
	MaxConfigSize    = 1 << 20
	MaxArgCount      = 256
	MaxRetries       = 10
	ParseTimeout     = 5 * time.Second
	maxCallStackSize = 256
)

// DefaultConfigFile is picked up from the working directory when no --config
// flag is given.
const DefaultConfigFile = "sassrun.lua"
