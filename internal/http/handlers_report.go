package http

import (
	"encoding/json"
	"net/http"

	"dailyledger/internal/advice"
	"dailyledger/internal/report"
)

type dayNetJSON struct {
	Day string      `json:"day"`
	Net json.Number `json:"net"`
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	st := s.deps.Session.State()
	today := s.deps.Session.Today()
	rows := s.deps.Reports.DailyNet(st.Transactions, today, days, s.deps.Session.Location())

	out := make([]dayNetJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, dayNetJSON{Day: row.Day.String(), Net: amount(row.Net)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today": today.String(),
		"days":  out,
	})
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Session.State()
	today := s.deps.Session.Today()
	totals := s.deps.Reports.Yearly(st.Transactions, today, s.deps.Session.Location())
	writeJSON(w, http.StatusOK, map[string]any{
		"from":   report.YearStart(today).String(),
		"to":     today.String(),
		"totals": toTotalsJSON(totals),
	})
}

// handleAdvice never fails: without a model the fallback text is served.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.deps.Advice == nil {
		writeJSON(w, http.StatusOK, map[string]any{"text": advice.FallbackText, "source": advice.SourceFallback, "cached": false})
		return
	}
	st := s.deps.Session.State()
	res := s.deps.Advice.Advise(r.Context(), st.Transactions, s.deps.Session.Today())
	writeJSON(w, http.StatusOK, map[string]any{
		"text":   res.Text,
		"source": res.Source,
		"cached": res.Cached,
	})
}
