package reportshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/reports"
	"policedir/internal/requestctx"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

type Handler struct {
	Reports *reports.Service
}

func NewHandler(svc *reports.Service) *Handler {
	return &Handler{Reports: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/reports/roster", h.HandleRoster)
}

func (h *Handler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	district := r.URL.Query().Get("district")
	station := r.URL.Query().Get("station")

	pdf, err := h.Reports.RosterPDF(r.Context(), district, station)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="roster.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
