// Package ipc carries control commands from CLI invocations to the running
// interview screen over a unix socket, one JSON line each way.
package ipc

// Control commands understood by the running screen.
const (
	CommandStatus = "status"
	CommandStart  = "start"
	CommandStop   = "stop"
)

// Request is one control command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the outcome plus a snapshot of the screen.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
	Speaker string `json:"speaker,omitempty"`
}

// Known reports whether command is one of the control commands.
func Known(command string) bool {
	switch command {
	case CommandStatus, CommandStart, CommandStop:
		return true
	default:
		return false
	}
}
