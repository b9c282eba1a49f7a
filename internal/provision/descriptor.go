package provision

import (
	"fmt"
	"path"
	"strings"

	"github.com/divehq/hostdeps/internal/binary"
	"github.com/divehq/hostdeps/internal/config"
	"github.com/divehq/hostdeps/internal/platform"
)

// nodeJSTarget is the only Node.js build the provisioner installs.
const nodeJSTarget = "win-x64"

// UVDescriptor describes the uv release archive for info. baseURL replaces
// DefaultUVBaseURL when non-empty.
func UVDescriptor(info *platform.Info, dirs config.Dirs, baseURL string) (binary.Descriptor, error) {
	triple, err := platform.TargetTriple(info)
	if err != nil {
		return binary.Descriptor{}, fmt.Errorf("%w: %w", ErrUnsupportedTarget, err)
	}
	hash, ok := UVHash(triple)
	if !ok {
		return binary.Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedTarget, triple)
	}
	if baseURL == "" {
		baseURL = DefaultUVBaseURL
	}

	format := binary.DefaultArchiveFormat
	return binary.Descriptor{
		Name:    "uv",
		Version: UVVersion,
		Target:  triple,
		URL:     fmt.Sprintf("%s/%s/uv-%s.%s", strings.TrimSuffix(baseURL, "/"), UVVersion, triple, format),
		SHA256:  hash,
		Format:  format,
		Dir:     dirs.UV(),
	}, nil
}

// NodeJSDescriptor describes the Windows x64 Node.js archive. It carries no
// pinned digest. baseURL replaces DefaultNodeJSBaseURL when non-empty.
func NodeJSDescriptor(dirs config.Dirs, baseURL string) binary.Descriptor {
	if baseURL == "" {
		baseURL = DefaultNodeJSBaseURL
	}
	return binary.Descriptor{
		Name:    "nodejs",
		Version: NodeJSVersion,
		Target:  nodeJSTarget,
		URL: fmt.Sprintf("%s/v%s/node-v%s-%s.zip",
			strings.TrimSuffix(baseURL, "/"), NodeJSVersion, NodeJSVersion, nodeJSTarget),
		Format: binary.FormatZip,
		Dir:    dirs.NodeJS(),
	}
}

// archiveName is the file name of the descriptor's download.
func archiveName(d binary.Descriptor) string {
	return path.Base(d.URL)
}

// archiveRoot is the top-level directory inside the archive.
func archiveRoot(d binary.Descriptor) string {
	return strings.TrimSuffix(archiveName(d), "."+d.Format.String())
}
