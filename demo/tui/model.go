package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"curator/types"
)

// State represents the demo state machine
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateDone       State = "done"
	StateError      State = "error"
)

// Model represents the TUI client state (thin client over the API)
type Model struct {
	Client *APIClient

	State State
	JobID string
	Job   *types.Job
	Err   error
}

// NewModel creates a new TUI model
func NewModel(baseURL, orgID string) Model {
	return Model{
		Client: NewAPIClient(baseURL, orgID),
		State:  StateIdle,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}
