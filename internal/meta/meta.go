// Package meta holds build-time metadata for Ferry.
package meta

// Version is the Ferry version string, set at build time using linker flags
// (e.g., -ldflags "-X github.com/ferrydock/ferry/internal/meta.Version=v1.0.0").
var Version = "v0.0.0-unknown"
