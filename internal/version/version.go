// Package version provides version information for the binary.
package version

import "fmt"

// Version is the current version of the application.
// Set at build time with -ldflags.
var Version = "dev"

// BuildTime is when the binary was built.
// Set at build time with -ldflags.
var BuildTime = "unknown"

// String returns the formatted version information.
func String() string {
	return fmt.Sprintf("paideia version %s (built %s)", Version, BuildTime)
}
