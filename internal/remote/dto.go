package remote

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warlaundry/washerman/internal/domain"
)

type orderDTO struct {
	ID              int64   `json:"id" validate:"gt=0"`
	BagNo           string  `json:"bagNo" validate:"required"`
	StudentName     *string `json:"studentName"`
	NumberOfClothes int     `json:"numberOfClothes" validate:"gte=0"`
	NoOfClothes     int     `json:"noOfClothes" validate:"gte=0"`
	SubmissionDate  *string `json:"submissionDate"`
	Status          string  `json:"status" validate:"required"`
}

type statsDTO struct {
	TotalOrders      int `json:"totalOrders" validate:"gte=0"`
	PendingOrders    int `json:"pendingOrders" validate:"gte=0"`
	InProgressOrders int `json:"inProgressOrders" validate:"gte=0"`
	CompleteOrders   int `json:"completeOrders" validate:"gte=0"`
}

type statusUpdateDTO struct {
	Status string `json:"status"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string     `json:"token" validate:"required"`
	User  profileDTO `json:"user"`
}

type profileDTO struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
}

type studentDTO struct {
	ID     int64  `json:"id" validate:"gt=0"`
	Name   string `json:"name" validate:"required"`
	RollNo string `json:"rollNo"`
	RoomNo string `json:"roomNo"`
	Phone  string `json:"phone"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// dateLayouts are tried in order; the service has sent all of them.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// clothes picks the first non-zero of the two field names the service uses.
func (d orderDTO) clothes() int {
	if d.NumberOfClothes != 0 {
		return d.NumberOfClothes
	}
	return d.NoOfClothes
}

func (d orderDTO) toDomain() (domain.Order, bool, error) {
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return domain.Order{}, false, err
	}
	o := domain.Order{
		ID:              d.ID,
		BagNo:           d.BagNo,
		StudentName:     d.StudentName,
		NumberOfClothes: d.clothes(),
		Status:          status,
	}
	dateOK := true
	if d.SubmissionDate != nil && strings.TrimSpace(*d.SubmissionDate) != "" {
		if t, ok := parseDate(*d.SubmissionDate); ok {
			o.SubmissionDate = &t
		} else {
			dateOK = false
		}
	}
	return o, dateOK, nil
}

func (d statsDTO) toDomain() domain.DashboardStats {
	return domain.DashboardStats{
		TotalOrders:      d.TotalOrders,
		PendingOrders:    d.PendingOrders,
		InProgressOrders: d.InProgressOrders,
		CompleteOrders:   d.CompleteOrders,
	}
}

func (d profileDTO) toDomain() domain.Profile {
	return domain.Profile{Username: d.Username, Name: d.Name, Email: d.Email, Role: d.Role}
}

func (d studentDTO) toDomain() domain.Student {
	return domain.Student{ID: d.ID, Name: d.Name, RollNo: d.RollNo, RoomNo: d.RoomNo, Phone: d.Phone}
}
