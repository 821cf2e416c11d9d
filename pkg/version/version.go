// Package version provides the build-time version string injected via ldflags.
//
//	go build -ldflags "-X github.com/nsg-ethz/p4-utils/pkg/version.Version=1.2.0" ./cmd/mxexec
package version

// Version is set at build time via -ldflags -X.
var Version = "(devel)"
