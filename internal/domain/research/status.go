package research

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle of a single research slot.
type Status string

const (
	StatusLocked      Status = "locked"
	StatusResearching Status = "researching"
	StatusReady       Status = "ready"
	StatusAccepted    Status = "accepted"
)

// Event drives a Status forward.
type Event string

const (
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventAccept   Event = "accept"
)

var ErrInvalidTransition = errors.New("invalid research transition")

// TransitionError reports a rejected (from, event) pair. It matches ErrInvalidTransition.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %q", ErrInvalidTransition.Error(), e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

var transitions = map[Status]map[Event]Status{
	StatusLocked:      {EventStart: StatusResearching},
	StatusResearching: {EventComplete: StatusReady},
	StatusReady:       {EventAccept: StatusAccepted},
}

// Transition returns the status reached from current on event, or a *TransitionError.
func Transition(current Status, event Event) (Status, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, &TransitionError{From: current, Event: event}
	}
	return next, nil
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusLocked, StatusResearching, StatusReady, StatusAccepted:
		return s, nil
	}
	return "", fmt.Errorf("unknown research status %q", raw)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}
