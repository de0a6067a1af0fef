package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const pollInterval = time.Second

func startRun(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		jobID, err := client.StartRun()
		return runStartedMsg{jobID: jobID, err: err}
	}
}

func pollJob(client *APIClient, jobID string) tea.Cmd {
	return func() tea.Msg {
		job, err := client.GetJob(jobID)
		return jobStatusMsg{job: job, err: err}
	}
}

func requestCancel(client *APIClient, jobID string) tea.Cmd {
	return func() tea.Msg {
		return cancelRequestedMsg{err: client.CancelJob(jobID)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
