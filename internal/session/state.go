// Package session holds the generation state of one user session and the
// transitions between states.
package session

import (
	"slices"
	"time"
)

// Status is the generation status.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Image is one generated image. It is never modified after creation.
type Image struct {
	ID           string
	URL          string // data URL
	Prompt       string
	Timestamp    time.Time
	HasReference bool
}

// State is everything the front end renders.
type State struct {
	Status    Status
	Prompt    string
	Reference string // data URL, empty when none is attached
	Err       string // message on display, if any
	History   []Image

	// failed reports that Err holds a generation failure rather than a
	// validation message.
	failed bool
}

// Action is a discrete change to State.
type Action interface{ action() }

type (
	SetPrompt      struct{ Text string }
	SetReference   struct{ DataURL string }
	ClearReference struct{}
	// Rejected records a validation message without touching Status.
	Rejected  struct{ Message string }
	Started   struct{}
	Succeeded struct{ Image Image }
	Failed    struct{ Message string }
	// Dismiss clears a displayed error and returns Error to Idle.
	Dismiss struct{}
)

func (SetPrompt) action()      {}
func (SetReference) action()   {}
func (ClearReference) action() {}
func (Rejected) action()       {}
func (Started) action()        {}
func (Succeeded) action()      {}
func (Failed) action()         {}
func (Dismiss) action()        {}

// transition is the status table. Pairs not listed keep the current status.
func transition(from Status, a Action) (Status, bool) {
	switch a.(type) {
	case Started:
		if from == Idle || from == Error {
			return Loading, true
		}
	case Succeeded:
		if from == Loading {
			return Success, true
		}
	case Failed:
		if from == Loading {
			return Error, true
		}
	case Dismiss:
		if from == Error {
			return Idle, true
		}
	}
	return from, false
}

// settle normalizes transient statuses. Success is only observable as the
// result of a transition; the resting status after it is Idle.
func settle(s Status) Status {
	if s == Success {
		return Idle
	}
	return s
}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	next, ok := transition(s.Status, a)

	switch a := a.(type) {
	case SetPrompt:
		s.Prompt = a.Text
	case SetReference:
		s.Reference = a.DataURL
		if a.DataURL != "" && !s.failed {
			s.Err = ""
		}
	case ClearReference:
		s.Reference = ""
	case Rejected:
		s.Err = a.Message
		s.failed = false
	case Started:
		if ok {
			s.Err = ""
			s.failed = false
		}
	case Succeeded:
		if ok {
			s.History = append([]Image{a.Image}, s.History...)
		}
	case Failed:
		if ok {
			s.Err = a.Message
			s.failed = true
		}
	case Dismiss:
		s.Err = ""
		s.failed = false
	}

	s.Status = settle(next)
	return s
}

// clone returns a copy of s that shares no slice memory with it.
func (s State) clone() State {
	s.History = slices.Clone(s.History)
	return s
}
