package domain

import (
	"strconv"
	"strings"
	"time"
)

type OrderStatus uint8

const (
	StatusPending OrderStatus = iota + 1
	StatusInProgress
	StatusComplete
)

type Order struct {
	ID              int64
	BagNo           string
	StudentName     *string
	NumberOfClothes int
	SubmissionDate  *time.Time
	Status          OrderStatus
}

// ParseStatus is case-insensitive and accepts the spellings the service has been seen to send.
func ParseStatus(raw string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "inprogress", "in progress", "in_progress":
		return StatusInProgress, nil
	case "complete", "completed":
		return StatusComplete, nil
	default:
		return 0, ValidationFailedError("unknown order status " + strconv.Quote(raw))
	}
}

// Key is the case-folded form used by filters and URLs.
func (s OrderStatus) Key() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "inprogress"
	case StatusComplete:
		return "complete"
	default:
		return ""
	}
}

// Wire is the form the remote service expects in status updates.
func (s OrderStatus) Wire() string {
	return strings.ToUpper(s.Key())
}

func (s OrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "To Start"
	case StatusInProgress:
		return "Washing"
	case StatusComplete:
		return "Done"
	default:
		return "Unknown Status"
	}
}

func (s OrderStatus) Valid() bool {
	return s >= StatusPending && s <= StatusComplete
}

// Next returns the only forward step allowed from s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusComplete, true
	default:
		return 0, false
	}
}

// ActionLabel names the button offered for the next step.
func (s OrderStatus) ActionLabel() string {
	switch s {
	case StatusPending:
		return "Start Washing"
	case StatusInProgress:
		return "Mark Done"
	case StatusComplete:
		return "Work Complete!"
	default:
		return ""
	}
}

func (s OrderStatus) String() string {
	return s.Key()
}

func (o Order) StudentDisplayName() string {
	if o.StudentName == nil || *o.StudentName == "" {
		return "Student"
	}
	return *o.StudentName
}

func (o Order) SubmissionDisplay() string {
	if o.SubmissionDate == nil {
		return "Today"
	}
	return o.SubmissionDate.Format("Jan 02")
}

func (o Order) CanAdvance() bool {
	_, ok := o.Status.Next()
	return ok
}
