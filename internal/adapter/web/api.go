package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/dashboard"
	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/remote"
)

type orderJSON struct {
	ID              int64      `json:"id"`
	BagNo           string     `json:"bagNo"`
	StudentName     string     `json:"studentName"`
	NumberOfClothes int        `json:"numberOfClothes"`
	SubmissionDate  *time.Time `json:"submissionDate,omitempty"`
	Status          string     `json:"status"`
	StatusLabel     string     `json:"statusLabel"`
	Action          string     `json:"action"`
	CanAdvance      bool       `json:"canAdvance"`
}

type ordersJSON struct {
	Items         []orderJSON                 `json:"items"`
	Page          int                         `json:"page"`
	PageSize      int                         `json:"pageSize"`
	TotalPages    int                         `json:"totalPages"`
	FilteredCount int                         `json:"filteredCount"`
	Filter        domain.FilterStatus         `json:"filter"`
	Counts        map[domain.FilterStatus]int `json:"counts"`
}

type dashboardJSON struct {
	TotalOrders      int         `json:"totalOrders"`
	PendingOrders    int         `json:"pendingOrders"`
	InProgressOrders int         `json:"inProgressOrders"`
	CompleteOrders   int         `json:"completeOrders"`
	Recent           []orderJSON `json:"recentOrders"`
	ShowViewAll      bool        `json:"showViewAll"`
	LastUpdated      time.Time   `json:"lastUpdated"`
}

func toOrderJSON(orders []domain.Order) []orderJSON {
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderJSON{
			ID:              o.ID,
			BagNo:           o.BagNo,
			StudentName:     o.StudentDisplayName(),
			NumberOfClothes: o.NumberOfClothes,
			SubmissionDate:  o.SubmissionDate,
			Status:          o.Status.Wire(),
			StatusLabel:     o.Status.Label(),
			Action:          o.Status.ActionLabel(),
			CanAdvance:      o.CanAdvance(),
		})
	}
	return out
}

// remoteStatus maps a failed call to the status the API answers with.
func remoteStatus(err error) int {
	switch {
	case remote.IsUnauthorized(err):
		return http.StatusUnauthorized
	case remote.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// handleAPIOrders reads the listing without touching the page state the HTML view keeps.
func (s *Server) handleAPIOrders(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	orders, err := s.backend.Orders(sess.Token).ListOrders(r.Context())
	if err != nil {
		writeJSON(w, remoteStatus(err), apiError{Error: messageOf(err, app.MsgLoadOrders)})
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := domain.ParseFilter(q.Get("filter"))
	p := app.BuildOrderPage(orders, app.ListQuery{
		Filter:   filter,
		Search:   q.Get("q"),
		Page:     page,
		PageSize: s.opts.PageSize,
	})
	writeJSON(w, http.StatusOK, ordersJSON{
		Items:         toOrderJSON(p.Items),
		Page:          p.Page,
		PageSize:      p.PageSize,
		TotalPages:    p.TotalPages,
		FilteredCount: p.FilteredCount,
		Filter:        filter,
		Counts:        app.Counts(orders),
	})
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	if err := ws.dashboard.Refresh(r.Context()); err != nil {
		writeJSON(w, remoteStatus(err), apiError{Error: messageOf(err, app.MsgLoadDashboard)})
		return
	}
	writeJSON(w, http.StatusOK, dashboardFromSnapshot(ws.dashboard.Snapshot()))
}

func dashboardFromSnapshot(snap dashboard.Snapshot) dashboardJSON {
	return dashboardJSON{
		TotalOrders:      snap.Stats.TotalOrders,
		PendingOrders:    snap.Stats.PendingOrders,
		InProgressOrders: snap.Stats.InProgressOrders,
		CompleteOrders:   snap.Stats.CompleteOrders,
		Recent:           toOrderJSON(snap.Recent),
		ShowViewAll:      snap.ShowViewAll(),
		LastUpdated:      snap.LastUpdated,
	}
}
