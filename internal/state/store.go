// Package state records install runs and the component versions each run
// left behind in a local SQLite database.
package state

import "time"

// RunStatus is the lifecycle state of an install run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the installer.
type Run struct {
	ID          string
	InstallDir  string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Component is what a run did to one component.
type Component struct {
	RunID       string
	Name        string
	Version     string
	Action      string
	InstalledAt time.Time
}

// Store persists run history.
type Store interface {
	CreateRun(installDir string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	RecordComponent(c Component) error
	ListRuns(limit int) ([]*Run, error)
	// LastRun returns the newest run for installDir.
	LastRun(installDir string) (*Run, error)
	ComponentsForRun(runID string) ([]*Component, error)
	Close() error
}
