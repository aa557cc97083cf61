package domain

import "strings"

type FilterStatus string

const (
	FilterAll        FilterStatus = "all"
	FilterPending    FilterStatus = "pending"
	FilterInProgress FilterStatus = "inprogress"
	FilterComplete   FilterStatus = "complete"
)

var Filters = []FilterStatus{FilterAll, FilterPending, FilterInProgress, FilterComplete}

// ParseFilter falls back to FilterAll for anything it does not recognise.
func ParseFilter(raw string) FilterStatus {
	switch FilterStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterPending:
		return FilterPending
	case FilterInProgress:
		return FilterInProgress
	case FilterComplete:
		return FilterComplete
	default:
		return FilterAll
	}
}

func (f FilterStatus) Matches(s OrderStatus) bool {
	if f == FilterAll {
		return true
	}
	return s.Key() == string(f)
}

func (f FilterStatus) Label() string {
	switch f {
	case FilterPending:
		return "To Start"
	case FilterInProgress:
		return "Washing"
	case FilterComplete:
		return "Done"
	default:
		return "All Bags"
	}
}
