package config

// Lua schema field names and globals
const (
	luaGlobalProvision  = "provision"
	luaFieldDebug       = "debug"
	luaFieldLogLevel    = "log_level"
	luaFieldLogFile     = "log_file"
	luaFieldLogToFile   = "log_to_file"
	luaFieldHostDir     = "host_dir"
	luaFieldPrebuiltDir = "prebuilt_dir"
	luaFieldMirrors     = "mirrors"
	luaFieldUV          = "uv"
	luaFieldNodeJS      = "nodejs"
	luaFieldVerifySums  = "verify_checksums"
	luaFieldKeyring     = "keyring"
)

const (
	maxConfigBytes     = 1 << 20
	defaultLogLevel    = "info"
	defaultRootDirName = ".dive"
	rootEnvVar         = "HOSTDEPS_ROOT"
)
