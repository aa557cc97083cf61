package web

import (
	"context"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
)

// Backend is everything the panel asks of the remote service, per session token.
type Backend interface {
	Login(ctx context.Context, username, password string) (token string, profile domain.Profile, err error)
	ChangePassword(ctx context.Context, token, current, next string) error
	Orders(token string) app.OrderService
	Students(token string) app.StudentService
}
