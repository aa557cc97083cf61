package app

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/warlaundry/washerman/internal/domain"
)

const (
	DefaultPageSize = 10
	// MinIDQueryLength guards the exact id match so short queries don't hit ids by accident.
	MinIDQueryLength = 3
)

type ListQuery struct {
	Filter   domain.FilterStatus
	Search   string
	Page     int
	PageSize int
}

type OrderPage struct {
	Items         []domain.Order
	Page          int
	PageSize      int
	TotalPages    int
	FilteredCount int
}

func (p OrderPage) HasPrev() bool {
	return p.Page > 1
}

func (p OrderPage) HasNext() bool {
	return p.Page < p.TotalPages
}

func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// FilterOrders never returns the input slice itself.
func FilterOrders(orders []domain.Order, filter domain.FilterStatus) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.Matches(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

func SearchOrders(orders []domain.Order, query string) []domain.Order {
	needle := NormalizeQuery(query)
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if needle == "" || matchesNeedle(o, needle) {
			out = append(out, o)
		}
	}
	return out
}

func matchesNeedle(o domain.Order, needle string) bool {
	if strings.Contains(strings.ToLower(o.BagNo), needle) {
		return true
	}
	if o.StudentName != nil && strings.Contains(strings.ToLower(*o.StudentName), needle) {
		return true
	}
	return utf8.RuneCountInString(needle) >= MinIDQueryLength && strconv.FormatInt(o.ID, 10) == needle
}

func TotalPages(filteredCount, pageSize int) int {
	if pageSize <= 0 || filteredCount <= 0 {
		return 1
	}
	return (filteredCount + pageSize - 1) / pageSize
}

func BuildOrderPage(orders []domain.Order, q ListQuery) OrderPage {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	filtered := SearchOrders(FilterOrders(orders, q.Filter), q.Search)

	total := TotalPages(len(filtered), q.PageSize)
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}

	return OrderPage{
		Items:         Paginate(filtered, page, q.PageSize),
		Page:          page,
		PageSize:      q.PageSize,
		TotalPages:    total,
		FilteredCount: len(filtered),
	}
}

// CountFor ignores the search query; it labels the filter cards.
func CountFor(orders []domain.Order, filter domain.FilterStatus) int {
	if filter == domain.FilterAll {
		return len(orders)
	}
	n := 0
	for _, o := range orders {
		if filter.Matches(o.Status) {
			n++
		}
	}
	return n
}

type FilterCounts map[domain.FilterStatus]int

func Counts(orders []domain.Order) FilterCounts {
	counts := make(FilterCounts, len(domain.Filters))
	for _, f := range domain.Filters {
		counts[f] = CountFor(orders, f)
	}
	return counts
}
