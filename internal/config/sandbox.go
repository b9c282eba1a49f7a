package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are removed from every settings VM. The file is declarative,
// so nothing may touch the OS, load code, or reach around metatables.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "dofile", "loadfile", "load", "loadstring",
	"getmetatable", "setmetatable", "rawget", "rawset", "rawequal",
	"collectgarbage", "module",
}

// newSandboxedVM creates a Lua VM with only the base, string, table, and
// math libraries available.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		CallStackSize: 256,
		RegistrySize:  1024 * 8,
	})
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
