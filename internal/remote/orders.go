package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/domain"
)

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "orders.list", "/washerman/orders", nil, &raw); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(raw))
	for i, item := range raw {
		order, err := c.decodeOrder(item)
		if err != nil {
			c.log.Warn("dropping invalid order record", zap.Int("index", i), zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *Client) decodeOrder(item json.RawMessage) (domain.Order, error) {
	var dto orderDTO
	if err := json.Unmarshal(item, &dto); err != nil {
		return domain.Order{}, fmt.Errorf("decode: %w", err)
	}
	if err := c.validate.Struct(dto); err != nil {
		return domain.Order{}, fmt.Errorf("validate order %d: %w", dto.ID, err)
	}
	order, dateOK, err := dto.toDomain()
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d: %w", dto.ID, err)
	}
	if !dateOK {
		c.log.Warn("unreadable submission date", zap.Int64("order_id", dto.ID), zap.Stringp("value", dto.SubmissionDate))
	}
	return order, nil
}

func (c *Client) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var dto statsDTO
	if err := c.do(ctx, http.MethodGet, "dashboard.stats", "/washerman/dashboard/stats", nil, &dto); err != nil {
		return domain.DashboardStats{}, err
	}
	if err := c.validate.Struct(dto); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("validate stats: %w", err)
	}
	return dto.toDomain(), nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ValidationFailedError("unknown target status")
	}
	path := "/washerman/orders/" + strconv.FormatInt(orderID, 10) + "/status"
	return c.do(ctx, http.MethodPut, "orders.status", path, statusUpdateDTO{Status: status.Wire()}, nil)
}
