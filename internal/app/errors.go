package app

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/warlaundry/washerman/internal/domain"
)

const (
	MsgLoadOrders     = "Failed to load orders"
	MsgLoadDashboard  = "Failed to load dashboard data"
	MsgUpdateStatus   = "Failed to update order status"
	MsgLoadStudents   = "Failed to load students"
	MsgUpdatePassword = "Failed to update password"
)

// MessageOf returns the message the service attached to err, or fallback when there is none.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var domainErr domain.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return fallback
}

// BulkMessageOf lists one "Order N: msg" entry per failed order.
func BulkMessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var parts []string
	for _, e := range multierr.Errors(err) {
		var orderErr *OrderError
		if errors.As(e, &orderErr) {
			parts = append(parts, fmt.Sprintf("Order %d: %s", orderErr.OrderID, MessageOf(orderErr.Err, fallback)))
			continue
		}
		parts = append(parts, MessageOf(e, fallback))
	}
	return strings.Join(parts, "; ")
}
