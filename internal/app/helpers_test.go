package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/warlaundry/washerman/internal/domain"
)

var contextBack = context.Background()

type orderServiceMock struct {
	mock.Mock
}

func (m *orderServiceMock) ListOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *orderServiceMock) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(domain.DashboardStats)
	return stats, args.Error(1)
}

func (m *orderServiceMock) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type studentServiceMock struct {
	mock.Mock
}

func (m *studentServiceMock) ListStudents(ctx context.Context, search string) ([]domain.Student, error) {
	args := m.Called(ctx, search)
	students, _ := args.Get(0).([]domain.Student)
	return students, args.Error(1)
}

func strPtr(s string) *string {
	return &s
}

func Bag(id int64, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:              id,
		BagNo:           fmt.Sprintf("BAG-%s", letters(id)),
		StudentName:     strPtr("Student " + letters(id)),
		NumberOfClothes: 5,
		Status:          status,
	}
}

// letters spells an id without digits so bag and name never contain an id by accident.
func letters(id int64) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if id == 0 {
		return "A"
	}
	out := ""
	for id > 0 {
		out = string(alphabet[id%26]) + out
		id /= 26
	}
	return out
}

func IdsOf(ord []domain.Order) (ids []int64) {
	for _, o := range ord {
		ids = append(ids, o.ID)
	}
	return
}

// FifteenBags is 6 pending, 5 in progress and 4 complete, with ids 42 and 101..114.
func FifteenBags() []domain.Order {
	ids := []int64{42, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114}
	statuses := []domain.OrderStatus{
		domain.StatusPending, domain.StatusInProgress, domain.StatusComplete,
		domain.StatusPending, domain.StatusInProgress, domain.StatusComplete,
		domain.StatusPending, domain.StatusInProgress, domain.StatusComplete,
		domain.StatusPending, domain.StatusInProgress, domain.StatusComplete,
		domain.StatusPending, domain.StatusInProgress, domain.StatusPending,
	}
	out := make([]domain.Order, 0, len(ids))
	for i, id := range ids {
		out = append(out, Bag(id, statuses[i]))
	}
	return out
}

type recordingRefetch struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRefetch) Refetch(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingRefetch) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
