package service

import (
	"context"
	"errors"
	"fmt"

	"codementor/internal/common"
	"codementor/internal/domain/model"
	"codementor/internal/domain/repository"
)

type ProgressService struct {
	progressRepo repository.ProgressRepository
	problemRepo  repository.ProblemRepository
}

func NewProgressService(progressRepo repository.ProgressRepository, problemRepo repository.ProblemRepository) *ProgressService {
	return &ProgressService{progressRepo: progressRepo, problemRepo: problemRepo}
}

type ProgressOverview struct {
	Stats    *model.UserStats     `json:"stats"`
	Problems []model.UserProgress `json:"problems"`
}

func (s *ProgressService) GetOverview(ctx context.Context, userID string) (*ProgressOverview, error) {
	stats, err := s.progressRepo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}
	list, err := s.progressRepo.ListProgressForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return &ProgressOverview{Stats: stats, Problems: list}, nil
}

// GetProblemProgress returns the caller's record for one problem. A problem
// never submitted to is reported as TODO rather than not found.
func (s *ProgressService) GetProblemProgress(ctx context.Context, userID string, problemNumber int) (*model.UserProgress, error) {
	problem, err := s.problemRepo.FindProblemByNumber(ctx, problemNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem %d: %w", problemNumber, err)
	}
	p, err := s.progressRepo.GetProgress(ctx, userID, problem.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return model.NewUserProgress(userID, problem.ID, problem.ProblemNumber), nil
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return p, nil
}
