package tui

import "curator/types"

// Messages for the tea program

type runStartedMsg struct {
	jobID string
	err   error
}

type jobStatusMsg struct {
	job *types.Job
	err error
}

type cancelRequestedMsg struct {
	err error
}

type tickMsg struct{}
