package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codementor/internal/api/middleware"
	"codementor/internal/app/service"
	"codementor/internal/common"
	"codementor/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/run", h.runCode)
	r.Post("/submit", h.submitCode)
	r.Get("/{submissionID}", h.getSubmission)
	r.Get("/problem/{problemNumber}", h.listForProblem)
}

func (h *SubmissionHandler) runCode(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, model.SubmissionTypeRun, http.StatusOK)
}

func (h *SubmissionHandler) submitCode(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, model.SubmissionTypeSubmit, http.StatusCreated)
}

func (h *SubmissionHandler) evaluate(w http.ResponseWriter, r *http.Request, mode model.SubmissionType, okStatus int) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	req.UserID = userID
	req.Mode = mode

	submission, err := h.submissionService.Evaluate(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, okStatus, submission)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	submission, err := h.submissionService.GetSubmission(r.Context(), userID, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) listForProblem(w http.ResponseWriter, r *http.Request) {
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

	submissions, err := h.submissionService.ListHistory(r.Context(), userID, problemNumber)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}
