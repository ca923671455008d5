// Package galleryhandler exposes the unit's shared photo gallery. The images
// live in the legacy bridge's Drive folder, so every operation is a
// pass-through; when no bridge is configured the endpoints report the
// feature as unavailable.
package galleryhandler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"policedir/internal/platform/legacy"
	"policedir/internal/requestctx"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

// maxImageBytes bounds gallery uploads, same cap as profile photos.
const maxImageBytes = 5 << 20

// Bridge is the slice of the legacy client the gallery needs.
type Bridge interface {
	GetGalleryImages(ctx context.Context) ([]legacy.GalleryImage, error)
	UploadGalleryImage(ctx context.Context, name string, image []byte) (legacy.GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, fileID string) error
}

type Handler struct {
	Bridge Bridge
}

func NewHandler(bridge Bridge) *Handler {
	return &Handler{Bridge: bridge}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gallery", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.HandleList)
		r.With(middleware.RequireAdmin).Post("/", h.HandleUpload)
		r.With(middleware.RequireAdmin).Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	images, err := h.Bridge.GetGalleryImages(r.Context())
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "bridge_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	if images == nil {
		images = []legacy.GalleryImage{}
	}
	api.Success(w, images, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		api.Invalid(w, "name query parameter is required", requestctx.GetRequestID(r.Context()))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		api.Invalid(w, "could not read image body", requestctx.GetRequestID(r.Context()))
		return
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		api.Fail(w, http.StatusBadRequest, "invalid_image", "image must be between 1 byte and 5 MB", requestctx.GetRequestID(r.Context()))
		return
	}

	image, err := h.Bridge.UploadGalleryImage(r.Context(), name, data)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "bridge_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Created(w, image, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Bridge.DeleteGalleryImage(r.Context(), id); err != nil {
		api.Fail(w, http.StatusBadGateway, "bridge_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"deleted": id}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.Bridge == nil {
		api.Fail(w, http.StatusServiceUnavailable, "bridge_unconfigured", "gallery requires the legacy bridge", requestctx.GetRequestID(r.Context()))
		return false
	}
	return true
}
