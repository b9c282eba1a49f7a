//go:build windows

package binary

// DefaultArchiveFormat is the format of uv release archives for this build.
const DefaultArchiveFormat = FormatZip
