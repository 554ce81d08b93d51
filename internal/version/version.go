// Package version reports the contribgate release.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"strings"
)

// Name is the binary name.
const Name = "contribgate"

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String returns the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("%s version %s (%s %s/%s)", Name, Get(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
