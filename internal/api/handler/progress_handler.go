package handler

import (
	"net/http"
	"strconv"

	"codementor/internal/api/middleware"
	"codementor/internal/app/service"
	"codementor/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	progressService *service.ProgressService
}

func NewProgressHandler(ps *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: ps}
}

func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/me", h.overview)
	r.Get("/me/{problemNumber}", h.problemProgress)
}

func (h *ProgressHandler) overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	overview, err := h.progressService.GetOverview(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, overview)
}

func (h *ProgressHandler) problemProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemNumber, err := strconv.Atoi(chi.URLParam(r, "problemNumber"))
	if err != nil || problemNumber <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid problem number")
		return
	}

	p, err := h.progressService.GetProblemProgress(r.Context(), userID, problemNumber)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, p)
}
