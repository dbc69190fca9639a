// Package audit keeps a JSON-lines trail of the description changes
// planned and applied on each device.
package audit

import (
	"fmt"
	"time"
)

// Operations recorded by the updater.
const (
	OperationCheck = "descriptions.check"
	OperationApply = "descriptions.apply"
)

// DefaultFileName is the audit log name inside the output directory.
const DefaultFileName = "ifdesc-audit.log"

// Event is one device visit that produced or applied changes
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Changes   []string      `json:"changes"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	CheckMode bool          `json:"check_mode"`
	Output    string        `json:"output,omitempty"` // file written, if any
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithChanges sets the changes
func (e *Event) WithChanges(changes []string) *Event {
	e.Changes = changes
	return e
}

// WithOutput records the file the event produced
func (e *Event) WithOutput(path string) *Event {
	e.Output = path
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithCheckMode marks whether changes were only written to a file
func (e *Event) WithCheckMode(check bool) *Event {
	e.CheckMode = check
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
