package directoryhandler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/directory"
	"policedir/internal/requestctx"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

// maxPhotoBytes bounds profile photo uploads.
const maxPhotoBytes = 5 << 20

type Handler struct {
	Dir *directory.Service
}

func NewHandler(dir *directory.Service) *Handler {
	return &Handler{Dir: dir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/by-email", h.HandleGetByEmail)
		r.Get("/{kgid}", h.HandleGetByID)
		r.With(middleware.RequireAdmin).Post("/", h.HandleUpsert)
		r.With(middleware.RequireAdmin).Delete("/{kgid}", h.HandleDelete)
		r.With(middleware.RequireAdmin).Post("/{kgid}/photo", h.HandleUploadPhoto)
		r.With(middleware.RequireAdmin).Post("/sync", h.HandleRefresh)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Dir.GetAllEmployees(r.Context())
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "sync_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emps, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	filter := r.URL.Query().Get("filter")

	emps, err := h.Dir.Search(r.Context(), query, filter)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "sync_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emps, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		api.Fail(w, http.StatusBadRequest, "missing_email", "email query parameter is required", requestctx.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Dir.GetEmployeeByEmail(r.Context(), email)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "lookup_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	if emp == nil {
		api.NotFound(w, "no employee for that email", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	kgid := chi.URLParam(r, "kgid")

	emp, err := h.Dir.GetEmployeeByID(r.Context(), kgid)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "lookup_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	if emp == nil {
		api.NotFound(w, "no employee for that id", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	// Admin payloads rarely carry isApproved; absent means approved, the same
	// default the store decoder applies.
	emp := directory.Employee{IsApproved: true}
	if err := json.NewDecoder(r.Body).Decode(&emp); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	saved, err := h.Dir.AddOrUpdateEmployee(r.Context(), emp)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "save_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Created(w, saved, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kgid := chi.URLParam(r, "kgid")
	if err := h.Dir.DeleteEmployee(r.Context(), kgid); err != nil {
		api.Fail(w, http.StatusInternalServerError, "delete_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"deleted": kgid}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	kgid := chi.URLParam(r, "kgid")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxPhotoBytes+1))
	if err != nil {
		api.Invalid(w, "could not read photo body", requestctx.GetRequestID(r.Context()))
		return
	}
	if len(data) == 0 || len(data) > maxPhotoBytes {
		api.Fail(w, http.StatusBadRequest, "invalid_photo", "photo must be between 1 byte and 5 MB", requestctx.GetRequestID(r.Context()))
		return
	}

	url, err := h.Dir.UploadPhoto(r.Context(), kgid, data)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "upload_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"photoUrl": url}, requestctx.GetRequestID(r.Context()))
}

// HandleRefresh is the strict resync: drops the cache before pulling, so
// remotely-deleted records disappear locally too.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Dir.RefreshAll(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "sync_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"records": h.Dir.Cache.Len()}, requestctx.GetRequestID(r.Context()))
}
