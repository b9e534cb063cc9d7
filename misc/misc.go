// Package misc holds build time program identification.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set by linker flags during release builds.
var (
	appName = ""
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name, when not set during build it is derived
// from executable name.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
