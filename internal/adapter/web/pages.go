package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/dashboard"
	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/session"
)

type filterCard struct {
	Filter domain.FilterStatus
	Label  string
	Count  int
}

type ordersBody struct {
	app.OrdersView
	Cards          []filterCard
	Query          string
	DebounceMillis int64
}

type studentsBody struct {
	Search   string
	Students []domain.Student
	Loaded   bool
}

type settingsBody struct {
	Profile domain.Profile
}

func messageOf(err error, fallback string) string {
	return app.MessageOf(err, fallback)
}

func (s *Server) chrome(r *http.Request, title, active string) layout {
	sess, _ := sessionFrom(r.Context())
	profile := sess.Profile
	return layout{Title: title, Active: active, Profile: &profile}
}

func (s *Server) workspaceFor(r *http.Request) (*workspace, session.Session) {
	sess, _ := sessionFrom(r.Context())
	return s.workspaces.For(sess), sess
}

// listingQuery keeps only the listing parameters so redirects land on the same view.
func listingQuery(r *http.Request) string {
	in := r.URL.Query()
	out := url.Values{}
	for _, k := range []string{"filter", "q", "page"} {
		if v := in.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out.Encode()
}

func ordersLocation(query string) string {
	return withQuery("/orders", query)
}

func (s *Server) applyListing(ws *workspace, r *http.Request) {
	q := r.URL.Query()
	ws.orders.SetFilter(domain.ParseFilter(q.Get("filter")))
	ws.orders.SetQuery(q.Get("q"))
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || !ws.orders.GoTo(page) {
		ws.orders.GoTo(1)
	}
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	if err := ws.orders.Load(r.Context()); err != nil {
		s.log.Warn("load orders", zap.Error(err))
	}
	s.applyListing(ws, r)
	s.renderOrders(w, r, ws)
}

func (s *Server) renderOrders(w http.ResponseWriter, r *http.Request, ws *workspace) {
	view := ws.orders.View()
	query := listingQuery(r)

	cards := make([]filterCard, 0, len(domain.Filters))
	for _, f := range domain.Filters {
		cards = append(cards, filterCard{Filter: f, Label: f.Label(), Count: view.Counts[f]})
	}

	l := s.chrome(r, "Orders", "orders")
	l.Error = view.Error
	if view.Error != "" {
		l.RetryURL = ordersLocation(query)
		l.DismissURL = withQuery("/orders/dismiss", query)
	}
	s.render(w, http.StatusOK, "orders", l, ordersBody{
		OrdersView:     view,
		Cards:          cards,
		Query:          query,
		DebounceMillis: s.opts.SearchDebounce.Milliseconds(),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad order id", http.StatusBadRequest)
		return
	}
	if err := ws.orders.Advance(r.Context(), id); err != nil {
		s.log.Warn("advance order", zap.Int64("order", id), zap.Error(err))
		s.applyListing(ws, r)
		s.renderOrders(w, r, ws)
		return
	}
	http.Redirect(w, r, ordersLocation(listingQuery(r)), http.StatusSeeOther)
}

func (s *Server) handleAdvanceMany(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ids := make([]int64, 0, len(r.PostForm["order_id"]))
	for _, raw := range r.PostForm["order_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "bad order id", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		http.Redirect(w, r, ordersLocation(listingQuery(r)), http.StatusSeeOther)
		return
	}

	if err := ws.orders.AdvanceMany(r.Context(), ids); err != nil {
		s.log.Warn("advance orders", zap.Int("selected", len(ids)), zap.Error(err))
		s.applyListing(ws, r)
		s.renderOrders(w, r, ws)
		return
	}
	http.Redirect(w, r, ordersLocation(listingQuery(r)), http.StatusSeeOther)
}

// handleOrdersDismiss hides the banner and shows the snapshot already held, without reloading.
func (s *Server) handleOrdersDismiss(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	ws.orders.ClearError()
	s.applyListing(ws, r)
	s.renderOrders(w, r, ws)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	if err := ws.dashboard.Refresh(r.Context()); err != nil {
		s.log.Debug("dashboard refresh", zap.Error(err))
	}
	s.renderDashboard(w, r, ws.dashboard.Snapshot())
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, snap dashboard.Snapshot) {
	l := s.chrome(r, "Dashboard", "dashboard")
	l.RefreshSeconds = int(s.opts.RefreshInterval.Seconds())
	l.Error = snap.Error
	if snap.Error != "" {
		l.RetryURL = "/dashboard"
		l.DismissURL = "/dashboard/dismiss"
	}
	s.render(w, http.StatusOK, "dashboard", l, snap)
}

func (s *Server) handleDashboardDismiss(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	ws.dashboard.ClearError()
	s.renderDashboard(w, r, ws.dashboard.Snapshot())
}

func (s *Server) handleDashboardAdvance(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad order id", http.StatusBadRequest)
		return
	}
	if err := ws.dashboard.Advance(r.Context(), id); err != nil {
		s.log.Warn("advance order from dashboard", zap.Int64("order", id), zap.Error(err))
		s.renderDashboard(w, r, ws.dashboard.Snapshot())
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.workspaceFor(r)
	search := r.URL.Query().Get("search")
	l := s.chrome(r, "Students", "students")

	students, err := ws.students.Lookup(r.Context(), search)
	if err != nil {
		s.log.Warn("lookup students", zap.Error(err))
		l.Error = messageOf(err, app.MsgLoadStudents)
		l.RetryURL = r.URL.RequestURI()
		s.render(w, http.StatusOK, "students", l, studentsBody{Search: search})
		return
	}
	s.render(w, http.StatusOK, "students", l, studentsBody{Search: search, Students: students, Loaded: true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	l := s.chrome(r, "Settings", "settings")
	if r.URL.Query().Get("updated") != "" {
		l.Notice = "Password updated"
	}
	s.render(w, http.StatusOK, "settings", l, settingsBody{Profile: *l.Profile})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	l := s.chrome(r, "Settings", "settings")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	err := s.backend.ChangePassword(r.Context(), sess.Token,
		r.PostForm.Get("current_password"), r.PostForm.Get("new_password"))
	if err != nil {
		s.log.Info("change password", zap.String("user", sess.Profile.Username), zap.Error(err))
		l.Error = messageOf(err, app.MsgUpdatePassword)
		status := http.StatusOK
		var de domain.Error
		if errors.As(err, &de) && de.Code == domain.ErrorCodeValidationFailed {
			status = http.StatusUnprocessableEntity
		}
		s.render(w, status, "settings", l, settingsBody{Profile: sess.Profile})
		return
	}
	http.Redirect(w, r, "/settings?updated=1", http.StatusSeeOther)
}
