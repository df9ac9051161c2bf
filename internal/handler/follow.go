package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aufy/internal/httputil"
	"aufy/internal/model"
	"aufy/internal/privacy"
	"aufy/internal/service"
	"aufy/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService  *service.FollowService
	privacyService *service.PrivacyService
}

func NewFollowHandler(followService *service.FollowService, privacyService *service.PrivacyService) *FollowHandler {
	return &FollowHandler{
		followService:  followService,
		privacyService: privacyService,
	}
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.followService.Request(r.Context(), followerID, followeeID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrAlreadyFollowing), errors.Is(err, model.ErrFollowRequestPending):
			httputil.WriteConflict(w, err.Error())
		case errors.Is(err, model.ErrAccountNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Follow handler: %v", err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Unfollow handler: %v", err)
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully unfollowed user",
	})
}

// Approve accepts a pending follow request. The authenticated user is
// the followee; the URL parameter names the requester.
func (h *FollowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	followeeID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followerID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.followService.Approve(r.Context(), followeeID, followerID); err != nil {
		switch {
		case errors.Is(err, model.ErrFollowRequestNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Approve handler: %v", err)
			httputil.WriteInternalError(w, "Failed to approve follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request approved",
	})
}

func (h *FollowHandler) Reject(w http.ResponseWriter, r *http.Request) {
	followeeID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followerID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.followService.Reject(r.Context(), followeeID, followerID); err != nil {
		switch {
		case errors.Is(err, model.ErrFollowRequestNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Reject handler: %v", err)
			httputil.WriteInternalError(w, "Failed to reject follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request rejected",
	})
}

// ToggleBlock blocks the target user, or unblocks if already blocked.
func (h *FollowHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	blockerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	blockedID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.followService.ToggleBlock(r.Context(), blockerID, blockedID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotBlockSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrAccountNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] ToggleBlock handler: %v", err)
			httputil.WriteInternalError(w, "Failed to update block")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *FollowHandler) GetBlocked(w http.ResponseWriter, r *http.Request) {
	blockerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	users, err := h.followService.ListBlocked(r.Context(), blockerID)
	if err != nil {
		log.Printf("[ERROR] GetBlocked handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get blocked users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.getFollowList(w, r, privacy.ClassFollowerList, h.followService.GetFollowers)
}

func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.getFollowList(w, r, privacy.ClassFollowingList, h.followService.GetFollowing)
}

type followListFn func(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error)

func (h *FollowHandler) getFollowList(w http.ResponseWriter, r *http.Request, class privacy.ContentClass, list followListFn) {
	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	viewerID := service.AnonymousViewer
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = id
	}

	_, decision, err := h.privacyService.CanViewAccount(r.Context(), viewerID, userID, class)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		log.Printf("[ERROR] Follow list privacy check: %v", err)
		httputil.WriteInternalError(w, "Failed to get follow list")
		return
	}
	if !decision.Allowed {
		httputil.WritePrivateAccount(w, "This account is private")
		return
	}

	cursor, ok := parseCursorParam(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimitParam(w, r)
	if !ok {
		return
	}

	var viewer *int64
	if viewerID != service.AnonymousViewer {
		viewer = &viewerID
	}

	resp, err := list(r.Context(), userID, cursor, limit, viewer)
	if err != nil {
		log.Printf("[ERROR] Follow list handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get follow list")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return 0, false
	}
	return id, true
}

func parseCursorParam(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	cursorStr := r.URL.Query().Get("cursor")
	if cursorStr == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339Nano, cursorStr)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid cursor format")
		return nil, false
	}
	return &parsed, true
}

func parseLimitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return service.FollowListDefaultLimit, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
		return 0, false
	}
	return limit, true
}
