package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/warlaundry/washerman/internal/domain"
)

type StudentDirectory struct {
	students StudentService
}

func NewStudentDirectory(students StudentService) *StudentDirectory {
	return &StudentDirectory{students: students}
}

// Lookup asks the service first and applies the same substring rule locally,
// so a service that ignores the search parameter still yields a filtered list.
func (d *StudentDirectory) Lookup(ctx context.Context, search string) ([]domain.Student, error) {
	students, err := d.students.ListStudents(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("students.ListStudents: %w", err)
	}

	needle := NormalizeQuery(search)
	out := make([]domain.Student, 0, len(students))
	for _, s := range students {
		if needle == "" ||
			strings.Contains(strings.ToLower(s.Name), needle) ||
			strings.Contains(strings.ToLower(s.RollNo), needle) ||
			strings.Contains(strings.ToLower(s.RoomNo), needle) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
