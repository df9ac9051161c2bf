package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aufy/internal/httputil"
	"aufy/internal/model"
	"aufy/internal/service"
	"aufy/internal/transport/http/middleware"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetProfile returns the profile for a username as the viewer may see
// it. Anonymous requests are allowed; they see public accounts only.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		httputil.WriteBadRequest(w, "Username is required")
		return
	}

	viewerID := service.AnonymousViewer
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = id
	}

	view, err := h.profileService.GetProfile(r.Context(), viewerID, username)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAccountNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] GetProfile handler: %v", err)
			httputil.WriteInternalError(w, "Failed to get profile")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}
