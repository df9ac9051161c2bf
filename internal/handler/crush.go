package handler

import (
	"errors"
	"log"
	"net/http"

	"aufy/internal/httputil"
	"aufy/internal/model"
	"aufy/internal/service"
	"aufy/internal/transport/http/middleware"
)

type CrushHandler struct {
	crushService *service.CrushService
}

func NewCrushHandler(crushService *service.CrushService) *CrushHandler {
	return &CrushHandler{crushService: crushService}
}

// Add records a secret crush on the target user.
func (h *CrushHandler) Add(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	entry, err := h.crushService.Add(r.Context(), ownerID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotCrushSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrCrushExists):
			httputil.WriteConflict(w, err.Error())
		case errors.Is(err, model.ErrCrushLimitReached):
			httputil.WriteLimitExceeded(w, err.Error())
		case errors.Is(err, model.ErrAccountNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Crush Add handler: %v", err)
			httputil.WriteInternalError(w, "Failed to add crush")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entry)
}

// Remove withdraws the crush on the target user.
func (h *CrushHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.crushService.Remove(r.Context(), ownerID, targetID); err != nil {
		switch {
		case errors.Is(err, model.ErrCrushNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Crush Remove handler: %v", err)
			httputil.WriteInternalError(w, "Failed to remove crush")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Crush removed",
	})
}

// List returns the caller's own active crushes. Never anyone else's.
func (h *CrushHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.crushService.List(r.Context(), ownerID)
	if err != nil {
		log.Printf("[ERROR] Crush List handler: %v", err)
		httputil.WriteInternalError(w, "Failed to list crushes")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
