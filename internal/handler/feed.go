package handler

import (
	"log"
	"net/http"
	"strconv"

	"aufy/internal/httputil"
	"aufy/internal/service"
	"aufy/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService      *service.FeedService
	discoveryService *service.DiscoveryService
}

func NewFeedHandler(feedService *service.FeedService, discoveryService *service.DiscoveryService) *FeedHandler {
	return &FeedHandler{
		feedService:      feedService,
		discoveryService: discoveryService,
	}
}

// GetFeed returns a page of the viewer's follow feed.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	page, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := h.feedService.GetFeed(r.Context(), viewerID, page, limit)
	if err != nil {
		log.Printf("[ERROR] GetFeed handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetDiscovery returns a page of the engagement-ranked discovery feed.
func (h *FeedHandler) GetDiscovery(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	page, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := h.discoveryService.GetDiscovery(r.Context(), viewerID, page, limit)
	if err != nil {
		log.Printf("[ERROR] GetDiscovery handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get discovery feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parsePageParams(w http.ResponseWriter, r *http.Request) (page, limit int, ok bool) {
	page = 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			httputil.WriteBadRequest(w, "Page must be a positive integer")
			return 0, 0, false
		}
		page = parsed
	}

	limit = service.FeedDefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > service.FeedMaxLimit {
			httputil.WriteBadRequest(w, "Limit out of range")
			return 0, 0, false
		}
		limit = parsed
	}
	return page, limit, true
}
