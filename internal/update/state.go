package update

// UpdateState describes where the coordinator is in the update lifecycle.
// Exactly one state is current at any time; it is the sole externally
// observed progress signal.
type UpdateState int

const (
	// StateUnknown is the initial state before any check has run.
	StateUnknown UpdateState = iota
	// StateChecking means a release feed query is in flight.
	StateChecking
	// StateAvailable means a newer release with a downloadable package was found.
	StateAvailable
	// StateLatest means the installed plugin matches the newest release.
	StateLatest
	// StateDownloading means the package archive is being fetched.
	StateDownloading
	// StateInstalling means the archive is being extracted and copied over
	// the plugin directory.
	StateInstalling
	// StateRestartRequired means the update is installed on disk but not yet
	// active in the running host; no further check or run may execute.
	StateRestartRequired
	// StateFailedCheck means the last check failed; see the error property.
	StateFailedCheck
	// StateFailedUpdate means the last run failed; see the error property.
	StateFailedUpdate
)

// String returns the string representation of an UpdateState.
func (s UpdateState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateAvailable:
		return "available"
	case StateLatest:
		return "latest"
	case StateDownloading:
		return "downloading"
	case StateInstalling:
		return "installing"
	case StateRestartRequired:
		return "restart_required"
	case StateFailedCheck:
		return "failed_check"
	case StateFailedUpdate:
		return "failed_update"
	default:
		return "unknown"
	}
}

// Failed reports whether the state records a failed operation.
func (s UpdateState) Failed() bool {
	return s == StateFailedCheck || s == StateFailedUpdate
}

// UpdatePackage is the remote release selected for install.
type UpdatePackage struct {
	Version string
	URL     string
}
