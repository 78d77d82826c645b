package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into the Lua state as a global.
// This should be called before loading any user configuration code. info may be nil.
func InjectPlatformTable(L *lua.LState, desc Descriptor, info *Info) error {
	platformTable := L.NewTable()

	osToken, err := OSToken(desc.OS)
	if err != nil {
		return err
	}
	L.SetField(platformTable, "os", lua.LString(osToken))

	// arch stays nil for architectures without a release token
	if archToken, err := ArchToken(desc.Arch); err == nil {
		L.SetField(platformTable, "arch", lua.LString(archToken))
	} else {
		L.SetField(platformTable, "arch", lua.LNil)
	}

	L.SetField(platformTable, "is_windows", lua.LBool(desc.OS == Windows))
	L.SetField(platformTable, "is_linux", lua.LBool(desc.OS == Linux))
	L.SetField(platformTable, "is_macos", lua.LBool(desc.OS == MacOS))
	L.SetField(platformTable, "is_x64", lua.LBool(desc.Arch == X86_64))
	L.SetField(platformTable, "is_arm64", lua.LBool(desc.Arch == ARM64))
	L.SetField(platformTable, "archive_extension", lua.LString(ArchiveExtension(desc.OS)))

	// Linux distribution (nil on non-Linux or when detection failed)
	if info != nil && desc.OS == Linux && info.Platform != "" {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(info.Platform))
		L.SetField(distroTable, "family", lua.LString(info.Family))
		L.SetField(distroTable, "version", lua.LString(info.Version))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	// when(condition, value) returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// InjectUnavailableTable installs a platform global for a host that could not
// be resolved. Configs that never read it evaluate normally; any field access
// raises cause.
func InjectUnavailableTable(L *lua.LState, cause error) {
	mt := L.NewTable()
	raise := L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform is unavailable: %s", cause.Error())
		return 0
	})
	L.SetField(mt, "__index", raise)
	L.SetField(mt, "__newindex", raise)
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	L.SetGlobal("platform", proxy)
}

// makeReadOnly makes a Lua table read-only by creating a proxy table with a metatable.
// The proxy redirects reads to the original table but prevents all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	L.SetField(mt, "__index", table)

	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))

	// Prevent changing the metatable itself
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
