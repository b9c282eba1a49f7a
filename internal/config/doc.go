// Package config resolves the hostdeps directory layout and parses the
// optional Lua settings file.
//
// # Directory layout
//
// Dirs derives every path the provisioner touches from a single root
// (default ~/.dive):
//
//	bin/uv/           uv and uvx
//	bin/python/       relocated CPython install
//	bin/nodejs/       Node.js (Windows only)
//	host_cache/       requirements.txt, deps/, uv.lock.md5
//	scripts/          def-tool scripts and node_modules/
//	log/              provision.log
//	config/           provision.lua
//
// # Settings file
//
// <root>/config/provision.lua runs in a sandboxed gopher-lua VM with the
// read-only platform table injected, so settings can branch on the host:
//
//	provision = {
//	  log_level = platform.is_windows and "debug" or "info",
//	  host_dir = "/opt/dive/mcp-host",
//	  mirrors = { uv = "https://mirror.example.com/uv" },
//	}
//
// A missing file yields Default(). Lua errors and invalid values are
// reported as *ParseError.
package config
