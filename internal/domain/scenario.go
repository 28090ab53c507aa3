package domain

// Scenario status values reported by the job-processing service.
const (
	StatusPending   = "Pending"
	StatusQueued    = "Queued"
	StatusRunning   = "Running"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
	StatusStopped   = "Stopped"
)

var terminalStatuses = map[string]struct{}{
	StatusCompleted: {},
	StatusCancelled: {},
	StatusStopped:   {},
}

// IsTerminalStatus reports whether a scenario status admits no further
// transitions.
func IsTerminalStatus(status string) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// ScenarioOutput describes one file produced by a completed scenario.
// Outputs that are not the final output are grouped into subdirectories by
// Group when downloaded.
type ScenarioOutput struct {
	Filename      string         `json:"filename"`
	URL           string         `json:"url"`
	Group         string         `json:"group"`
	IsFinalOutput bool           `json:"is_final_output"`
	OutputMeta    map[string]any `json:"output_meta"`
}

// Settings is the user configuration surface consumed by the client: the
// debug flag and the base URL override that only applies in debug mode.
type Settings struct {
	Debug   bool
	BaseURL string
}
