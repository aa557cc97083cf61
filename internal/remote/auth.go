package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warlaundry/washerman/internal/domain"
)

// Login exchanges credentials for a token. The returned client carries it.
func (c *Client) Login(ctx context.Context, username, password string) (*Client, domain.Profile, error) {
	req := loginRequest{Username: username, Password: password}
	if err := c.validate.Struct(req); err != nil {
		return nil, domain.Profile{}, domain.ValidationFailedError("Username and password are required")
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "auth.login", "/auth/login", req, &resp); err != nil {
		return nil, domain.Profile{}, err
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, domain.Profile{}, fmt.Errorf("validate login response: %w", err)
	}
	return c.WithToken(resp.Token), resp.User.toDomain(), nil
}

func (c *Client) Me(ctx context.Context) (domain.Profile, error) {
	if c.token == "" {
		return domain.Profile{}, domain.UnauthenticatedError("not logged in")
	}
	var dto profileDTO
	if err := c.do(ctx, http.MethodGet, "auth.me", "/auth/me", nil, &dto); err != nil {
		return domain.Profile{}, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := passwordChangeRequest{CurrentPassword: current, NewPassword: next}
	if err := c.validate.Struct(req); err != nil {
		return domain.ValidationFailedError("New password must be at least 6 characters and differ from the current one")
	}
	return c.do(ctx, http.MethodPut, "auth.password", "/auth/password", req, nil)
}

// Check asks the service who owns token.
func (c *Client) Check(ctx context.Context, token string) (domain.Profile, error) {
	return c.WithToken(token).Me(ctx)
}
