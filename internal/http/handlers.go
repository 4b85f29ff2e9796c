package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/core"
	"finreport/internal/log"
)

type importAccepted struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Status string `json:"status"`
}

type importRunView struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	asOf := strings.TrimSpace(r.URL.Query().Get("datetime"))
	writeJSON(w, http.StatusOK, s.reports.Home(r.Context(), asOf))
}

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := sanitizeInput(q.Get("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "missing parameter: category")
		return
	}
	rows, err := s.reports.SpendingByCategory(r.Context(), category, strings.TrimSpace(q.Get("date")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = core.Ledger{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleIncreasedCashback(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.reports.IncreasedCashback(r.Context(), params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleCreateImport(w, r)
		return
	}
	s.handleListImports(w, r)
}

func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger imports are not configured")
		return
	}
	req, err := decodeImportRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := amqp.NewLedgerImportMessage(req.Path)
	if err := s.publisher.PublishLedgerImport(ctx, msg); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to queue ledger import",
			log.FieldImportID, msg.ID,
			log.FieldFile, msg.Path,
			log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "import queue unavailable")
		return
	}
	w.Header().Set("Location", "/api/ledger/imports?id="+msg.ID)
	writeJSON(w, http.StatusAccepted, importAccepted{ID: msg.ID, Path: msg.Path, Status: "queued"})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "import history requires the sqlite backend")
		return
	}
	limit, err := ParseLimit(r.URL.Query(), 20, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.history.RecentImports(ctx, limit)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list imports", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to list imports")
		return
	}
	out := make([]importRunView, 0, len(runs))
	for _, run := range runs {
		out = append(out, importRunView{
			ID:         run.ID,
			Path:       run.SourcePath,
			Status:     string(run.Status),
			Rows:       run.Rows,
			Error:      run.Error,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps caller-input errors to 400 and the rest to 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
