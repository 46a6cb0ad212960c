// Package plugin inspects a Krita AI Diffusion plugin installation on disk.
// The plugin ships as a Python package under <plugin dir>/ai_diffusion, with
// its version recorded as a module-level __version__ assignment.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	apperrors "kritactl/internal/errors"
)

// PackageDirName is the Python package directory the plugin installs into.
const PackageDirName = "ai_diffusion"

var versionRe = regexp.MustCompile(`(?m)^__version__\s*=\s*["']([^"']+)["']`)

// Info describes an installed plugin.
type Info struct {
	// Dir is the plugin directory the package lives under.
	Dir string
	// Version is the value of __version__ in the package's __init__.py.
	Version string
}

// Detect locates the plugin under pluginDir and reads its version.
// A missing package directory yields CodePluginMissing; a package whose
// __init__.py lacks a parseable version yields CodeBadVersion.
func Detect(pluginDir string) (Info, error) {
	pkgDir := filepath.Join(pluginDir, PackageDirName)
	if fi, err := os.Stat(pkgDir); err != nil || !fi.IsDir() {
		return Info{}, apperrors.New(apperrors.CodePluginMissing,
			fmt.Sprintf("plugin package not found at %s", pkgDir), err)
	}

	initPath := filepath.Join(pkgDir, "__init__.py")
	data, err := os.ReadFile(initPath)
	if err != nil {
		return Info{}, apperrors.New(apperrors.CodeBadVersion,
			fmt.Sprintf("read %s", initPath), err)
	}

	m := versionRe.FindSubmatch(data)
	if m == nil {
		return Info{}, apperrors.New(apperrors.CodeBadVersion,
			fmt.Sprintf("no __version__ assignment in %s", initPath), nil)
	}

	return Info{Dir: pluginDir, Version: string(m[1])}, nil
}
