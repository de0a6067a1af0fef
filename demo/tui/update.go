package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "R":
			if m.State == StateIdle || m.State == StateDone || m.State == StateError {
				m.State = StateStarting
				m.Job = nil
				m.Err = nil
				return m, startRun(m.Client)
			}
		case "c", "C":
			if m.State == StateRunning && m.JobID != "" {
				m.State = StateCancelling
				return m, requestCancel(m.Client, m.JobID)
			}
		}

	case runStartedMsg:
		if msg.err != nil {
			m.State = StateError
			m.Err = msg.err
			return m, nil
		}
		m.JobID = msg.jobID
		m.State = StateRunning
		return m, tea.Batch(pollJob(m.Client, m.JobID), tickCmd())

	case tickMsg:
		if m.State == StateRunning || m.State == StateCancelling {
			return m, tea.Batch(pollJob(m.Client, m.JobID), tickCmd())
		}
		return m, nil

	case jobStatusMsg:
		if msg.err != nil {
			// Transient poll failures keep the last known state on screen.
			return m, nil
		}
		m.Job = msg.job
		if msg.job.Status.Terminal() {
			m.State = StateDone
		}
		return m, nil

	case cancelRequestedMsg:
		if msg.err != nil {
			m.State = StateError
			m.Err = msg.err
		}
		return m, nil
	}

	return m, nil
}
