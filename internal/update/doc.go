// Package update implements version checking and in-place upgrading of the
// Krita AI Diffusion plugin.
//
// This package handles:
//   - Querying the GitHub API for the latest release of the plugin repository
//   - Selecting the downloadable ZIP package for a new version
//   - Downloading, extracting and merge-copying the package over the
//     installed plugin directory
//   - Tracking progress through an observable state machine
//
// The package is designed to be isolated from UI concerns. The Coordinator
// exposes its state, latest version and last error as observable properties
// that a frontend can subscribe to; no error escapes Check or Run.
//
// Example usage:
//
//	feed := update.NewChecker(update.DefaultRepoOwner, update.DefaultRepoName)
//	coord := update.NewCoordinator(feed, pluginDir, currentVersion)
//	coord.Check(ctx)
//	if coord.IsAvailable() {
//	    coord.Run(ctx)
//	}
package update
