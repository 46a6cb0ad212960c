package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"kritactl/internal/debug"
	"kritactl/internal/props"
)

// packageName is the directory and archive prefix used by plugin releases.
const packageName = "krita_ai_diffusion"

// Error variables for feed-shape errors reported by Check.
var (
	ErrMissingTag      = fmt.Errorf("release information does not contain a version tag")
	ErrNoPackageAsset  = fmt.Errorf("release does not contain a ZIP package")
	ErrMissingAssetURL = fmt.Errorf("release ZIP asset is missing a download URL")
)

// ReleaseSource supplies release metadata and asset payloads. It is injected
// into the Coordinator at construction; *Checker is the production
// implementation.
type ReleaseSource interface {
	LatestRelease(ctx context.Context) (*ReleaseInfo, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Coordinator tracks the plugin's version state, polls the release feed and
// performs in-place upgrades of the plugin directory.
//
// Check and Run never return errors; failures are recorded on the Error and
// State properties instead, so observers see exactly what a frontend would.
// The coordinator assumes serialized invocation: callers must not start a
// new operation while one is in flight.
type Coordinator struct {
	feed           ReleaseSource
	pluginDir      string
	currentVersion string
	pkg            *UpdatePackage
	release        *ReleaseInfo

	// State is the current position in the update lifecycle.
	State *props.Property[UpdateState]
	// LatestVersion is the newest release version seen by a successful check.
	LatestVersion *props.Property[string]
	// Error is the last failure message, empty when none.
	Error *props.Property[string]
}

// NewCoordinator creates a coordinator for the plugin installed in pluginDir
// and currently running currentVersion.
func NewCoordinator(feed ReleaseSource, pluginDir, currentVersion string) *Coordinator {
	return &Coordinator{
		feed:           feed,
		pluginDir:      pluginDir,
		currentVersion: currentVersion,
		State:          props.NewProperty(StateUnknown),
		LatestVersion:  props.NewProperty(""),
		Error:          props.NewProperty(""),
	}
}

// CurrentVersion returns the version the coordinator considers installed.
// After a successful Run it reflects the freshly installed version.
func (c *Coordinator) CurrentVersion() string {
	return c.currentVersion
}

// IsAvailable reports whether a successful check found a version that
// differs from the installed one.
func (c *Coordinator) IsAvailable() bool {
	latest := c.LatestVersion.Get()
	return latest != "" && latest != c.currentVersion
}

// Package returns the release selected by the last successful check, or nil.
func (c *Coordinator) Package() *UpdatePackage {
	return c.pkg
}

// LatestRelease returns the feed entry fetched by the last check that reached
// the feed, or nil. It carries the release notes and page URL for display.
func (c *Coordinator) LatestRelease() *ReleaseInfo {
	return c.release
}

// Check queries the release feed and moves the state to StateLatest or
// StateAvailable. When the plugin was already updated this session
// (StateRestartRequired) it is a no-op. Failures land in StateFailedCheck.
func (c *Coordinator) Check(ctx context.Context) {
	c.guard(ctx, c.check, StateFailedCheck, "failed to check for new plugin version")
}

// Run downloads and installs the package found by the last Check. Calling it
// without a pending package is a programming error and panics; the frontend
// is expected to gate Run on StateAvailable. Failures land in
// StateFailedUpdate.
func (c *Coordinator) Run(ctx context.Context) {
	c.guard(ctx, c.run, StateFailedUpdate, "failed to update plugin")
}

// guard is the uniform error boundary for Check and Run: it maps an
// operation failure to the designated failure state and error message
// exactly once, so no error crosses the public surface.
func (c *Coordinator) guard(ctx context.Context, op func(context.Context) error, failState UpdateState, message string) {
	if err := op(ctx); err != nil {
		debug.Logf("update: %s: %v", message, err)
		c.Error.Set(fmt.Sprintf("%s: %v", message, err))
		c.State.Set(failState)
	}
}

func (c *Coordinator) check(ctx context.Context) error {
	// The plugin must not upgrade twice in one session.
	if c.State.Get() == StateRestartRequired {
		return nil
	}

	c.State.Set(StateChecking)
	c.pkg = nil

	release, err := c.feed.LatestRelease(ctx)
	if err != nil {
		return err
	}
	c.release = release

	tag := release.TagName
	if tag == "" {
		tag = release.Name
	}
	if tag == "" {
		return ErrMissingTag
	}

	latest := trimVersionPrefix(tag)
	c.LatestVersion.Set(latest)

	if latest == c.currentVersion {
		debug.Logf("update: plugin is up to date (%s)", latest)
		c.State.Set(StateLatest)
		return nil
	}

	asset := findZipAsset(release.Assets)
	if asset == nil {
		return ErrNoPackageAsset
	}
	if asset.BrowserDownloadURL == "" {
		return ErrMissingAssetURL
	}

	debug.Logf("update: new plugin version available: %s (%s)", latest, asset.BrowserDownloadURL)
	c.pkg = &UpdatePackage{Version: latest, URL: asset.BrowserDownloadURL}
	c.State.Set(StateAvailable)
	return nil
}

func (c *Coordinator) run(ctx context.Context) (err error) {
	if c.LatestVersion.Get() == "" || c.pkg == nil {
		panic("update: Run called without a pending package; Check must leave StateAvailable first")
	}

	// The temp directory is owned by this call and released on every exit
	// path, success or failure.
	tempDir, err := os.MkdirTemp("", "kritactl-update-*")
	if err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	c.State.Set(StateDownloading)
	debug.Logf("update: downloading plugin package %s", c.pkg.URL)
	data, err := c.feed.Download(ctx, c.pkg.URL)
	if err != nil {
		return err
	}

	versioned := fmt.Sprintf("%s-%s", packageName, c.pkg.Version)
	archivePath := filepath.Join(tempDir, versioned+".zip")
	if err := os.WriteFile(archivePath, data, 0o600); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	c.State.Set(StateInstalling)
	sourceDir := filepath.Join(tempDir, versioned)
	debug.Logf("update: extracting plugin archive into %s", sourceDir)
	if err := extractZip(archivePath, sourceDir); err != nil {
		return err
	}

	debug.Logf("update: installing new plugin version to %s", c.pluginDir)
	if err := copyDir(sourceDir, c.pluginDir); err != nil {
		return err
	}

	c.currentVersion = c.pkg.Version
	c.State.Set(StateRestartRequired)
	return nil
}

// trimVersionPrefix strips a leading "v" from a release tag.
func trimVersionPrefix(tag string) string {
	if len(tag) > 0 && tag[0] == 'v' {
		return tag[1:]
	}
	return tag
}

// findZipAsset returns the first asset whose filename ends in ".zip", or nil.
func findZipAsset(assets []ReleaseAsset) *ReleaseAsset {
	for i := range assets {
		if filepath.Ext(assets[i].Name) == ".zip" {
			return &assets[i]
		}
	}
	return nil
}
