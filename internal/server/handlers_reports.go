package server

import (
	"errors"
	"net/http"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/storage"
)

// HandleAnalyze handles POST /v1/analyze.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeAnalysisInput(w, r)
	if !ok {
		return
	}

	report, err := h.analysis.Analyze(r.Context(), in)
	if err != nil {
		if r.Context().Err() != nil {
			// The client went away; nothing useful can be written.
			h.logger.Warn("analysis abandoned", "error", err, "request_id", RequestIDFromContext(r.Context()))
			return
		}
		h.writeInternalError(w, r, "failed to analyze records", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, report)
}

// HandleKPIs handles POST /v1/kpis. It runs only the KPI stage and stores
// nothing.
func (h *Handlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeAnalysisInput(w, r)
	if !ok {
		return
	}
	kpis, quality := h.analysis.KPIs(r.Context(), in)
	writeJSON(w, r, http.StatusOK, model.KPIsResponse{KPIs: kpis, DataQuality: quality})
}

func (h *Handlers) decodeAnalysisInput(w http.ResponseWriter, r *http.Request) (model.AnalysisInput, bool) {
	var in model.AnalysisInput
	if err := decodeJSON(r, &in); err != nil {
		handleDecodeError(w, r, err)
		return in, false
	}
	if err := model.ValidateAnalysisInput(in); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return in, false
	}
	return in, true
}

// HandleListReports handles GET /v1/reports.
func (h *Handlers) HandleListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	reports, total, err := h.analysis.List(r.Context(), limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list reports", err)
		return
	}
	writeList(w, r, reports, total, limit, offset, len(reports))
}

// HandleGetReport handles GET /v1/reports/{id}.
func (h *Handlers) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// HandleReportDecisions handles GET /v1/reports/{id}/decisions.
func (h *Handlers) HandleReportDecisions(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, report.Decisions)
}

func (h *Handlers) loadReport(w http.ResponseWriter, r *http.Request) (model.Report, bool) {
	id, err := parseReportID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return model.Report{}, false
	}
	report, err := h.analysis.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "report not found: "+id.String())
		return model.Report{}, false
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to get report", err)
		return model.Report{}, false
	}
	return report, true
}
