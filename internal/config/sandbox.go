package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM strips everything that reaches outside the VM:
// - system commands and environment (os)
// - the filesystem (io)
// - external code (require, dofile, loadfile, load, loadstring)
// - the debug library
//
// string, table and math stay available, as do the basic functions (type,
// tostring, pairs, ...). A config file can compute values but cannot act.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os",
		"io",
		"require",
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"debug",
		"collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{CallStackSize: maxCallStackSize})
	sandboxLuaVM(L)
	return L
}
