// Package version exposes the sqlbatch build version.
package version

//nolint:gochecknoglobals // Set at build time via -ldflags "-X".
var version = "dev"

// GetVersion returns the version string the binary was built with.
func GetVersion() string {
	return version
}
