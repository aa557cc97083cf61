package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warlaundry/washerman/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "loading", "dashboard", "orders", "students", "settings"}

type views struct {
	pages map[string]*template.Template
}

func mustLoadViews() *views {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		v.pages[name] = template.Must(template.New("layout.html").Funcs(funcMap()).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return v
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"title":       func(s string) string { return cases.Title(language.English).String(s) },
		"statusClass": func(s domain.OrderStatus) string { return "status-" + s.Key() },
		"ordersURL":   ordersURL,
		"withQuery":   withQuery,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"clock":       func(t time.Time) string { return t.Format("15:04:05") },
	}
}

// ordersURL builds a listing link keeping filter, search and page.
func ordersURL(filter domain.FilterStatus, q string, page int) string {
	v := url.Values{}
	if filter != "" && filter != domain.FilterAll {
		v.Set("filter", string(filter))
	}
	if q != "" {
		v.Set("q", q)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/orders"
	}
	return "/orders?" + v.Encode()
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

type layout struct {
	Title          string
	Active         string
	Profile        *domain.Profile
	Error          string
	Notice         string
	RetryURL       string
	DismissURL     string
	RefreshSeconds int
}

type page struct {
	layout
	Body any
}

func (s *Server) render(w http.ResponseWriter, status int, name string, l layout, body any) {
	tmpl, ok := s.views.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page{layout: l, Body: body}); err != nil {
		s.log.Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "loading", layout{
		Title:          "Checking your session",
		RefreshSeconds: 2,
		RetryURL:       r.URL.RequestURI(),
	}, nil)
}

type apiError struct {
	Error string `json:"error,omitempty"`
	State string `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
