package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not found",
			err:  domain.EntityNotFoundError("order", "7"),
			want: "ERROR: ORDER_NOT_FOUND: ",
		},
		{
			name: "validation",
			err:  domain.ValidationFailedError("Username and password are required"),
			want: "ERROR: VALIDATION_FAILED: Username and password are required",
		},
		{
			name: "transition",
			err:  app.TransitionError(7, domain.TransitionNotAllowedError(domain.StatusComplete)),
			want: "ERROR: TRANSITION_NOT_ALLOWED: ",
		},
		{
			name: "remote with message",
			err:  domain.RemoteError(400, "Bag already collected"),
			want: "ERROR: REMOTE_ERROR: Bag already collected",
		},
		{
			name: "remote without message uses fallback",
			err:  fmt.Errorf("GET /x: %w", domain.RemoteError(502, "")),
			want: "ERROR: REMOTE_ERROR: " + app.MsgLoadOrders,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "ERROR: unexpected error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapError(tt.err, app.MsgLoadOrders)
			assert.Contains(t, got.Error(), tt.want)
		})
	}
}
