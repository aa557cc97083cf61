package domain

type DashboardStats struct {
	TotalOrders      int
	PendingOrders    int
	InProgressOrders int
	CompleteOrders   int
}

// Consistent reports whether the per-status counts add up to the total.
// The server does not guarantee it and the panel renders the numbers either way.
func (s DashboardStats) Consistent() bool {
	return s.PendingOrders+s.InProgressOrders+s.CompleteOrders == s.TotalOrders
}
