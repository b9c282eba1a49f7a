package provision

// Pinned dependency versions.
const (
	UVVersion     = "0.7.15"
	PythonVersion = "3.12.10"
	NodeJSVersion = "22.17.0"
)

// Default release hosts. Mirrors must keep the same path layout.
const (
	DefaultUVBaseURL     = "https://github.com/astral-sh/uv/releases/download"
	DefaultNodeJSBaseURL = "https://nodejs.org/dist"
)

// uvHashes holds the SHA-256 of every uv UVVersion release archive by target
// triple. It is never mutated.
var uvHashes = map[string]string{
	"aarch64-apple-darwin":           "7a20f3d33cbbc75683d66e0562d4bdbd702ca656d7dc1b7be3c592de6a6517b9",
	"aarch64-pc-windows-msvc":        "48e297f7dbc7110b386ca1ff9d4421171683c4e8a82aff3537f283fb9439761b",
	"aarch64-unknown-linux-gnu":      "a8241809c6efcf5ff649d259276dabd297a2c46e9e2f78891a1f9b8ae858e1e8",
	"aarch64-unknown-linux-musl":     "4351c1e2ec13f5eb4da058ac1c39f00ae3042de9d6fdb6480e0170f32813210f",
	"arm-unknown-linux-musleabihf":   "26c7f1baf3f14857d8d5d2df86ea47a3ce5a0e6223c1db9af2a32bb3d216d5f1",
	"armv7-unknown-linux-gnueabihf":  "6609e0f39c958a2b728ffec99ed53741cee92d5db168fb275448216a9e2f5a63",
	"armv7-unknown-linux-musleabihf": "3a60e3bfc6b927537eff1c6fdb359bdfb5a02a59820bb964e04144d731b12ca9",
	"i686-pc-windows-msvc":           "831ac11382c9ae014f6f5d27506c8977bfba5aa6b104e278d3a87ff4d1e311d3",
	"i686-unknown-linux-gnu":         "8d11cd225843aa7e7b25a5300721d48519a13bc82fc8b7bf63b063b8520b2db6",
	"i686-unknown-linux-musl":        "8640a014e5ef7020b33a8e95fabd5e0c75adf80beeaf265ed50dfe2bee92aeb2",
	"powerpc64-unknown-linux-gnu":    "6a4c0fe1075c4f3b9dfb8d0654a58ca547aaa84f829bc9e1b60a096153d18686",
	"powerpc64le-unknown-linux-gnu":  "81f6d18b857cc3517f249fd7e321b9cad6e6c17bc7d7ad88cefc0c25cca3e486",
	"riscv64gc-unknown-linux-gnu":    "6a0a6ef8fa3d03b6a6cab9185cd84e28c78db1e5736efa711e6f5efa4e6c27e3",
	"s390x-unknown-linux-gnu":        "d5a2343934c7fec124fb0a140b12c4dd30e20c5473e67b11d064f5b6e52eead0",
	"x86_64-apple-darwin":            "4c7c1fe116566b6f8725a3801a33fa5e066b8687643acd73249e5db1351c2103",
	"x86_64-pc-windows-msvc":         "b78c2d265e74b21b1c04b5b4ffd61c5c7b8110f9188e24949ee9f6fd5fbaf0a8",
	"x86_64-unknown-linux-gnu":       "b1dc0892749e93382decbd894755be0ba1535587f0bb8333572b072d1b0f652a",
	"x86_64-unknown-linux-musl":      "c97afc120614c88bd8c13dac2d35015bc59656289633d61bc438e7e680a38710",
}

// UVHash returns the pinned archive digest for triple.
func UVHash(triple string) (string, bool) {
	h, ok := uvHashes[triple]
	return h, ok
}
