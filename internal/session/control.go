package session

import (
	"context"
	"fmt"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/ipc"
)

// Handle serves control-socket commands for the running screen.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.response(true, c.describe(), nil)
	case ipc.CommandStart:
		if err := c.Start(ctx); err != nil {
			return c.response(false, "", err)
		}
		return c.response(true, "start requested", nil)
	case ipc.CommandStop:
		before := c.State()
		if err := c.Stop(ctx); err != nil {
			return c.response(false, "", err)
		}
		if before != c.State() {
			return c.response(true, "stop requested", nil)
		}
		return c.response(true, "no active call", nil)
	default:
		return c.response(false, "", fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) describe() string {
	status := c.Status()
	if status.Activation == "" {
		return "no interview activated"
	}
	if !status.Provisioned {
		return fmt.Sprintf("interview %s loading", status.InterviewID)
	}
	desc := fmt.Sprintf("interview %s: %s with %s (%d questions)", status.InterviewID, status.JobTitle, status.UserName, status.Questions)
	if status.LastErr != nil {
		desc += "; last start failed: " + status.LastErr.Error()
	}
	return desc
}

func (c *Controller) response(ok bool, message string, err error) ipc.Response {
	status := c.Status()
	resp := ipc.Response{
		OK:      ok,
		State:   string(status.State),
		Message: message,
		Elapsed: status.Elapsed,
		Speaker: string(status.Speaker),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
