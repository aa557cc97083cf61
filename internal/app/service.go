package app

import (
	"context"

	"github.com/warlaundry/washerman/internal/domain"
)

// OrderService is the remote order API as seen by the panel.
type OrderService interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetDashboardStats(ctx context.Context) (domain.DashboardStats, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
}

type StudentService interface {
	ListStudents(ctx context.Context, search string) ([]domain.Student, error)
}

// Refetcher reloads whichever listing issued a command.
type Refetcher func(ctx context.Context)

func Paginate[T any](items []T, currentPage, itemsPerPage int) []T {
	totalItems := len(items)

	if itemsPerPage <= 0 {
		return []T{}
	}
	if currentPage <= 0 {
		currentPage = 1
	}

	startIndex := (currentPage - 1) * itemsPerPage
	endIndex := startIndex + itemsPerPage

	if startIndex >= totalItems {
		return []T{}
	}
	if endIndex > totalItems {
		endIndex = totalItems
	}

	return items[startIndex:endIndex]
}
