// Package msgs defines shared message types for TUI view transitions.
package msgs

// View transition messages

// OpenWizardMsg opens the wizard. An empty TaskID starts a new analysis for
// the selected company; otherwise the task is resumed.
type OpenWizardMsg struct {
	TaskID string
}

// CloseWizardMsg returns to the task list, discarding the wizard session.
type CloseWizardMsg struct{}

// DeleteTaskMsg asks for confirmation before deleting a task.
type DeleteTaskMsg struct {
	TaskID string
	Name   string
}

// Wizard operation messages

// OpDoneMsg reports the end of a wizard operation that ran off the UI loop.
type OpDoneMsg struct {
	Op  string
	Err error
}

// RefreshMsg is the periodic redraw tick. Views read the store and the wizard
// controller directly, so a redraw is all an upload progress update needs.
type RefreshMsg struct{}

// StoreChangedMsg reports that the task collection changed outside the UI
// loop, for example when another process rewrote the state file.
type StoreChangedMsg struct {
	Ticker string
	TaskID string
}
