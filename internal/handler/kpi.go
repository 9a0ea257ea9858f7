package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/reshape"
	"github.com/awsl-project/ranstat/internal/service"
)

const queryDateLayout = "2006-01-02"

// KPIQuerier reads reshaped KPI rows. Implemented by service.QueryService.
type KPIQuerier interface {
	Hourly(ctx context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error)
	LTE(ctx context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error)
	Weekly(ctx context.Context, filter domain.KPIFilter) ([]reshape.WeeklyRow, error)
	Overview(ctx context.Context, filter domain.KPIFilter) (*service.Overview, error)
}

// KPIHandler serves the dashboard query API
type KPIHandler struct {
	query KPIQuerier
}

func NewKPIHandler(query KPIQuerier) *KPIHandler {
	return &KPIHandler{query: query}
}

func (h *KPIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/kpi/nr-hourly", h.handleNRHourly)
	r.Get("/api/kpi/lte-hourly", h.handleLTEHourly)
	r.Get("/api/kpi/site-weekly", h.handleSiteWeekly)
	r.Get("/api/kpi/overview", h.handleOverview)
}

// GET /api/kpi/nr-hourly?start=2025-11-01&end=2025-11-30&band=3500MHz
func (h *KPIHandler) handleNRHourly(w http.ResponseWriter, r *http.Request) {
	serveQuery(w, r, h.query.Hourly)
}

// GET /api/kpi/lte-hourly
func (h *KPIHandler) handleLTEHourly(w http.ResponseWriter, r *http.Request) {
	serveQuery(w, r, h.query.LTE)
}

// GET /api/kpi/site-weekly?site=SITE01
func (h *KPIHandler) handleSiteWeekly(w http.ResponseWriter, r *http.Request) {
	serveQuery(w, r, h.query.Weekly)
}

// GET /api/kpi/overview
func (h *KPIHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	serveQuery(w, r, h.query.Overview)
}

func serveQuery[T any](w http.ResponseWriter, r *http.Request, run func(context.Context, domain.KPIFilter) (T, error)) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := run(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseFilter 解析 start/end/band/site 查询参数
// band 可以重复，也可以逗号分隔
func parseFilter(r *http.Request) (domain.KPIFilter, error) {
	q := r.URL.Query()
	var f domain.KPIFilter

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start", &f.Start},
		{"end", &f.End},
	} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		t, err := time.Parse(queryDateLayout, v)
		if err != nil {
			return f, fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", p.name, v)
		}
		*p.dst = &t
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return f, fmt.Errorf("start %s is after end %s", f.Start.Format(queryDateLayout), f.End.Format(queryDateLayout))
	}

	for _, v := range q["band"] {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				f.Bands = append(f.Bands, b)
			}
		}
	}
	if site := strings.TrimSpace(q.Get("site")); site != "" {
		f.Site = &site
	}
	return f, nil
}
