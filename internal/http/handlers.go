package http

import (
	"net/http"
	"strconv"

	applog "vendas/internal/log"
	"vendas/internal/services"
)

// handleIndex renders the dashboard for ?year=&month=. Any load error
// replaces the whole page with a single message.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.dashboard.View(ctx, ParseSelection(r.URL.Query()))
	if err != nil {
		s.logger.LogError(ctx, "Dashboard load failed", err, applog.OpSnapshot, applog.NewFields().WithComponent(applog.ComponentDashboard))
		s.render(w, r, errorStatus(err), "dashboard.html", errorPage(err))
		return
	}

	s.logger.LogDashboardServed(ctx, s.dashboard.SourceName(), view.Selection.Year, view.Selection.Month, view.SalesRows, view.TargetRows)
	s.render(w, r, http.StatusOK, "dashboard.html", buildPage(view, s.location))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.View(r.Context(), ParseSelection(r.URL.Query()))
	if err != nil {
		s.logger.LogError(r.Context(), "Snapshot load failed", err, applog.OpSnapshot, nil)
		writeJSON(w, errorStatus(err), buildErrorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, NewSnapshotResponse(view, s.location))
}

// handlePeriods lists the years and the months of ?year=, defaulting to the
// most recent year.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dashboard.Dataset(r.Context())
	if err != nil {
		writeJSON(w, errorStatus(err), buildErrorResponse(err))
		return
	}

	years := services.Years(ds)
	resp := PeriodsResponse{Years: years, Months: []int{}}
	if len(years) > 0 {
		resp.Year = years[0]
		requested := ParseSelection(r.URL.Query()).Year
		for _, y := range years {
			if y == requested {
				resp.Year = y
			}
		}
		resp.Months = services.Months(ds, resp.Year)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReload drops the cached dataset and loads it again. Browsers are
// redirected back to the selection they were looking at.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sel := ParseSelection(r.Form)

	ds, err := s.dashboard.Reload(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "Manual reload failed", err, applog.OpReload, applog.NewFields().WithSelection(sel.Year, sel.Month))
		if wantsJSON(r) {
			writeJSON(w, errorStatus(err), buildErrorResponse(err))
			return
		}
		s.render(w, r, errorStatus(err), "dashboard.html", errorPage(err))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Dataset reloaded on request",
		applog.FieldOperation, applog.OpReload,
		applog.FieldSalesRows, len(ds.Sales),
		applog.FieldTargetRows, len(ds.Targets))

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"loaded_at":   ds.LoadedAt.In(s.location),
			"sales_rows":  len(ds.Sales),
			"target_rows": len(ds.Targets),
		})
		return
	}
	http.Redirect(w, r, "/"+selectionQuery(sel), http.StatusSeeOther)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	msg := "Muitas atualizações. Tente novamente em " + w.Header().Get("Retry-After") + " segundos."
	if wantsJSON(r) {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: msg})
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a dataset has loaded at least once.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.dashboard.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.Header().Set("X-Dataset-Loads", strconv.FormatInt(s.dashboard.Loads(), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
