package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"codementor/internal/common"
	"codementor/internal/domain/model"
	"codementor/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ProblemService is the read-only catalog view used by clients and by the
// evaluation pipeline's callers.
type ProblemService struct {
	problemRepo  repository.ProblemRepository
	testCaseRepo repository.TestCaseRepository
}

func NewProblemService(problemRepo repository.ProblemRepository, testCaseRepo repository.TestCaseRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, testCaseRepo: testCaseRepo}
}

type ListProblemsRequest struct {
	Page       int
	PageSize   int
	Difficulty model.ProblemDifficulty
	Category   string
	Search     string
}

func (s *ProblemService) ListProblems(ctx context.Context, req ListProblemsRequest) ([]model.Problem, int, error) {
	offset := (req.Page - 1) * req.PageSize
	if offset < 0 {
		offset = 0
	}
	return s.problemRepo.ListProblems(ctx, repository.ProblemFilter{
		Difficulty: req.Difficulty,
		Category:   req.Category,
		Search:     strings.TrimSpace(req.Search),
		Limit:      req.PageSize,
		Offset:     offset,
	})
}

// GetProblem resolves ref as a problem number when numeric, as a problem id
// when it is a UUID, otherwise as a slug. Titles are accepted too and
// slugified before lookup.
func (s *ProblemService) GetProblem(ctx context.Context, ref string) (*model.Problem, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.Errorf("problem reference is required: %w", common.ErrBadRequest)
	}
	if n, err := strconv.Atoi(ref); err == nil {
		return s.problemRepo.FindProblemByNumber(ctx, n)
	}
	if _, err := uuid.Parse(ref); err == nil {
		return s.problemRepo.FindProblemByID(ctx, ref)
	}
	return s.problemRepo.FindProblemBySlug(ctx, slug.Make(ref))
}

// GetVisibleTestCases returns the cases a user may see and run against.
func (s *ProblemService) GetVisibleTestCases(ctx context.Context, ref string) ([]model.TestCase, error) {
	problem, err := s.GetProblem(ctx, ref)
	if err != nil {
		return nil, err
	}
	testCases, err := s.testCaseRepo.ListTestCases(ctx, problem.ID, true)
	if err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}
	return testCases, nil
}

// CatalogEntry is one problem in a seed file.
type CatalogEntry struct {
	Problem   model.Problem    `json:"problem"`
	TestCases []model.TestCase `json:"test_cases"`
}

// CatalogSeeder is implemented by stores that accept a catalog at start-up.
type CatalogSeeder interface {
	SeedProblem(p model.Problem, testCases []model.TestCase) error
}

// SeedCatalogFile loads a JSON array of CatalogEntry into seeder, filling in
// ids and slugs that the file leaves out.
func SeedCatalogFile(path string, seeder CatalogSeeder) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog seed: %w", err)
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("decode catalog seed: %w", err)
	}
	for _, e := range entries {
		p := e.Problem
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Slug == "" {
			p.Slug = slug.Make(p.Title)
		}
		for i := range e.TestCases {
			if e.TestCases[i].ID == "" {
				e.TestCases[i].ID = uuid.NewString()
			}
		}
		if err := seeder.SeedProblem(p, e.TestCases); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
