package models

// PendingCommand represents a verb waiting for its argument in the
// two-step prompt flow
type PendingCommand int

const (
	// PendingNone is the idle state
	PendingNone PendingCommand = iota
	// PendingAddName awaits the profile name for /add
	PendingAddName
	// PendingDeleteName awaits the profile name for /delete
	PendingDeleteName
	// PendingGetName awaits the profile name for /get
	PendingGetName
	// PendingSuspendName awaits the profile name for /suspend
	PendingSuspendName
	// PendingResumeName awaits the profile name for /resume
	PendingResumeName
	// PendingRegisterToken awaits the token for /register
	PendingRegisterToken
)

// Session represents the conversation state of a single user
type Session struct {
	Pending PendingCommand
}
