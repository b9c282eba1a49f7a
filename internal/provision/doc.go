// Package provision installs the runtime dependencies the MCP host needs:
// the uv package manager, a CPython build installed through uv, the host's
// Python packages, and on Windows a Node.js runtime.
//
// A Provisioner runs two branches concurrently. The runtime branch installs
// uv, then Python, then the host packages. The Node.js branch only does work
// on Windows. Each step is skipped when its on-disk marker shows it is
// already done. Progress is reported as Events on a bounded channel that is
// closed when Start returns, so a consumer can simply range over Events().
//
//	p, err := provision.New(provision.Options{Dirs: dirs, HostDir: host, Platform: info})
//	go func() { _ = p.Start(ctx) }()
//	for ev := range p.Events() {
//	    fmt.Println(ev)
//	}
//
// On macOS every native executable unpacked by a step is ad-hoc signed
// before the step completes.
package provision
