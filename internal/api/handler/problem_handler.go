package handler

import (
	"net/http"
	"strconv"

	"codementor/internal/app/service"
	"codementor/internal/common"
	"codementor/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)                                   // GET /api/v1/problems
	r.Get("/{problemRef}", h.getProblem)                         // GET /api/v1/problems/1 or /two-sum
	r.Get("/{problemRef}/testcases/visible", h.visibleTestCases) // GET /api/v1/problems/1/testcases/visible
}

type PaginatedProblemsResponse struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	difficulty := model.ProblemDifficulty(q.Get("difficulty"))
	if difficulty != "" && !difficulty.IsValid() {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid difficulty: "+string(difficulty))
		return
	}

	problems, total, err := h.problemService.ListProblems(r.Context(), service.ListProblemsRequest{
		Page:       page,
		PageSize:   pageSize,
		Difficulty: difficulty,
		Category:   q.Get("category"),
		Search:     q.Get("search"),
	})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	if problems == nil {
		problems = []model.Problem{}
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedProblemsResponse{
		Problems: problems,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "problemRef"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) visibleTestCases(w http.ResponseWriter, r *http.Request) {
	testCases, err := h.problemService.GetVisibleTestCases(r.Context(), chi.URLParam(r, "problemRef"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if testCases == nil {
		testCases = []model.TestCase{}
	}
	common.RespondWithJSON(w, http.StatusOK, testCases)
}
