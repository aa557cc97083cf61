package app

import "github.com/warlaundry/washerman/internal/domain"

// ListState is the UI state behind an order list. Not safe for concurrent use.
type ListState struct {
	filter   domain.FilterStatus
	query    string
	page     int
	pageSize int
}

func NewListState(pageSize int, filter domain.FilterStatus) *ListState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if filter == "" {
		filter = domain.FilterAll
	}
	return &ListState{filter: filter, page: 1, pageSize: pageSize}
}

func (s *ListState) SetFilter(f domain.FilterStatus) {
	if f == s.filter {
		return
	}
	s.filter = f
	s.page = 1
}

// SetQuery takes the settled (debounced) query; the page resets only when its effective value changes.
func (s *ListState) SetQuery(q string) {
	if NormalizeQuery(q) == NormalizeQuery(s.query) {
		s.query = q
		return
	}
	s.query = q
	s.page = 1
}

func (s *ListState) NextPage(totalPages int) bool {
	if s.page >= totalPages {
		return false
	}
	s.page++
	return true
}

func (s *ListState) PrevPage() bool {
	if s.page <= 1 {
		return false
	}
	s.page--
	return true
}

func (s *ListState) GoTo(page, totalPages int) bool {
	if page < 1 || page > totalPages {
		return false
	}
	s.page = page
	return true
}

func (s *ListState) Filter() domain.FilterStatus {
	return s.filter
}

func (s *ListState) Search() string {
	return s.query
}

func (s *ListState) Page() int {
	return s.page
}

func (s *ListState) Query() ListQuery {
	return ListQuery{
		Filter:   s.filter,
		Search:   s.query,
		Page:     s.page,
		PageSize: s.pageSize,
	}
}
