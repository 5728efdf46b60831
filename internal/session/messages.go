package session

import (
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/feedback"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
)

type commandKind int

const (
	commandActivate commandKind = iota + 1
	commandStart
	commandStop
)

// command is a user action delivered to the loop.
type command struct {
	kind        commandKind
	interviewID string
	nav         interview.NavigationState
	autoStart   bool
	reply       chan error
}

// message is an async result tagged with the activation that requested it.
type message interface {
	activation() string
}

type provisioned struct {
	activationID string
	info         interview.Context
	source       interview.Source
}

type probed struct {
	activationID string
	device       audio.Device
	err          error
}

type callRequested struct {
	activationID string
	err          error
}

type stopped struct {
	activationID string
	err          error
}

type submitted struct {
	activationID string
	record       interview.ResultRecord
	outcome      feedback.Outcome
	err          error
}

type navigated struct {
	activationID string
	handoff      completion.Handoff
	outcome      feedback.Outcome
	submitErr    error
	err          error
}

func (m provisioned) activation() string   { return m.activationID }
func (m probed) activation() string        { return m.activationID }
func (m callRequested) activation() string { return m.activationID }
func (m stopped) activation() string       { return m.activationID }
func (m submitted) activation() string     { return m.activationID }
func (m navigated) activation() string     { return m.activationID }
