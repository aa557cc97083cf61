package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/domain"
)

func (c *Client) ListStudents(ctx context.Context, search string) ([]domain.Student, error) {
	path := "/washerman/students"
	if search != "" {
		path += "?" + url.Values{"search": {search}}.Encode()
	}

	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "students.list", path, nil, &raw); err != nil {
		return nil, err
	}

	students := make([]domain.Student, 0, len(raw))
	for i, item := range raw {
		var dto studentDTO
		err := json.Unmarshal(item, &dto)
		if err == nil {
			err = c.validate.Struct(dto)
		}
		if err != nil {
			c.log.Warn("dropping invalid student record", zap.Int("index", i), zap.Error(fmt.Errorf("student: %w", err)))
			continue
		}
		students = append(students, dto.toDomain())
	}
	return students, nil
}
