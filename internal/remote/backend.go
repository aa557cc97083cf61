package remote

import (
	"context"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
)

// Backend hands out per-token views of the client to the front ends.
type Backend struct {
	client *Client
}

func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Login(ctx context.Context, username, password string) (string, domain.Profile, error) {
	authed, profile, err := b.client.Login(ctx, username, password)
	if err != nil {
		return "", domain.Profile{}, err
	}
	return authed.Token(), profile, nil
}

func (b *Backend) ChangePassword(ctx context.Context, token, current, next string) error {
	return b.client.WithToken(token).ChangePassword(ctx, current, next)
}

func (b *Backend) Orders(token string) app.OrderService {
	return b.client.WithToken(token)
}

func (b *Backend) Students(token string) app.StudentService {
	return b.client.WithToken(token)
}
