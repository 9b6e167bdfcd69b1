package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vendas/internal/core"
)

// ParseSelection extracts year and month from query parameters. Missing or
// malformed values come back as zero, which the dashboard treats as "use
// the default period".
func ParseSelection(query url.Values) core.Selection {
	var sel core.Selection
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			sel.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			sel.Month = m
		}
	}
	return sel
}

// wantsJSON reports whether the client prefers a JSON response over a page.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// selectionQuery renders sel back into a query string for redirects.
func selectionQuery(sel core.Selection) string {
	q := url.Values{}
	if sel.Year > 0 {
		q.Set("year", strconv.Itoa(sel.Year))
	}
	if sel.Month > 0 {
		q.Set("month", strconv.Itoa(sel.Month))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
