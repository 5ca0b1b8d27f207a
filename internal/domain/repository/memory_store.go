package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"codementor/internal/common"
	"codementor/internal/domain/model"
)

// MemoryStore implements every repository interface in process. It backs the
// "memory" storage driver and the service tests.
//
// Progress, stats and problem aggregates are serialised per key with the
// same lock order as the Postgres implementation; the map-level mutex is
// only held for short copies in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*model.User
	problems    map[string]*model.Problem
	testCases   map[string][]model.TestCase
	submissions map[string]*model.Submission
	progress    map[string]*model.UserProgress
	stats       map[string]*model.UserStats

	keys *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[string]*model.User{},
		problems:    map[string]*model.Problem{},
		testCases:   map[string][]model.TestCase{},
		submissions: map[string]*model.Submission{},
		progress:    map[string]*model.UserProgress{},
		stats:       map[string]*model.UserStats{},
		keys:        newKeyedMutex(),
	}
}

var (
	_ ProblemRepository      = (*MemoryStore)(nil)
	_ TestCaseRepository     = (*MemoryStore)(nil)
	_ SubmissionRepository   = (*MemoryStore)(nil)
	_ ProgressRepository     = (*MemoryStore)(nil)
	_ FinalizationRepository = (*MemoryStore)(nil)
	_ UserRepository         = (*MemoryStore)(nil)
)

func progressKey(userID, problemID string) string {
	return userID + "/" + problemID
}

// SeedProblem stores a problem and its test cases, replacing any previous
// catalog entry with the same id.
func (s *MemoryStore) SeedProblem(p model.Problem, testCases []model.TestCase) error {
	if p.ID == "" {
		return fmt.Errorf("seed problem %d: %w: missing id", p.ProblemNumber, common.ErrValidation)
	}
	seen := map[int]bool{}
	for i := range testCases {
		tc := &testCases[i]
		tc.ProblemID = p.ID
		if tc.TestCaseNumber < 1 || seen[tc.TestCaseNumber] {
			return fmt.Errorf("seed problem %d: %w: bad test case number %d", p.ProblemNumber, common.ErrValidation, tc.TestCaseNumber)
		}
		seen[tc.TestCaseNumber] = true
		if tc.TimeLimitMs <= 0 {
			tc.TimeLimitMs = model.DefaultTimeLimitMs
		}
		if tc.MemoryLimitMb <= 0 {
			tc.MemoryLimitMb = model.DefaultMemoryLimitMb
		}
	}
	sorted := slices.Clone(testCases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TestCaseNumber < sorted[j].TestCaseNumber })

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.problems {
		if id != p.ID && existing.ProblemNumber == p.ProblemNumber {
			return fmt.Errorf("seed problem %d: %w", p.ProblemNumber, common.ErrConflict)
		}
	}
	cp := cloneProblem(&p)
	s.problems[p.ID] = cp
	s.testCases[p.ID] = sorted
	return nil
}

// Problems

func (s *MemoryStore) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.problems[id]; ok {
		return cloneProblem(p), nil
	}
	return nil, common.ErrProblemNotFound
}

func (s *MemoryStore) FindProblemByNumber(_ context.Context, number int) (*model.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.problems {
		if p.ProblemNumber == number {
			return cloneProblem(p), nil
		}
	}
	return nil, common.ErrProblemNotFound
}

func (s *MemoryStore) FindProblemBySlug(_ context.Context, slug string) (*model.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.problems {
		if p.Slug == slug {
			return cloneProblem(p), nil
		}
	}
	return nil, common.ErrProblemNotFound
}

func (s *MemoryStore) ListProblems(_ context.Context, filter ProblemFilter) ([]model.Problem, int, error) {
	s.mu.RLock()
	var matched []model.Problem
	for _, p := range s.problems {
		if filter.Difficulty != "" && p.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *cloneProblem(p))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ProblemNumber < matched[j].ProblemNumber })
	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	start := min(filter.Offset, total)
	end := min(start+limit, total)
	page := matched[start:end]
	if page == nil {
		page = []model.Problem{}
	}
	return page, total, nil
}

// Test cases

func (s *MemoryStore) ListTestCases(_ context.Context, problemID string, visibleOnly bool) ([]model.TestCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.TestCase{}
	for _, tc := range s.testCases[problemID] {
		if visibleOnly && tc.IsHidden {
			continue
		}
		out = append(out, cloneTestCase(tc))
	}
	return out, nil
}

// Submissions

func (s *MemoryStore) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.submissions[id]; ok {
		return cloneSubmission(sub), nil
	}
	return nil, common.ErrNotFound
}

func (s *MemoryStore) ListRecentForUserProblem(_ context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	s.mu.RLock()
	var subs []model.Submission
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.ProblemID == problemID {
			subs = append(subs, *cloneSubmission(sub))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

func (s *MemoryStore) AcceptedPercentileCounts(_ context.Context, problemID string, runtimeMs, memoryKb int) (AcceptedCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c AcceptedCounts
	for _, sub := range s.submissions {
		if sub.ProblemID != problemID || !sub.IsAccepted || sub.SubmissionType != model.SubmissionTypeSubmit {
			continue
		}
		c.Total++
		if sub.RuntimeMs >= runtimeMs {
			c.RuntimeAtLeast++
		}
		if sub.MemoryKb >= memoryKb {
			c.MemoryAtLeast++
		}
	}
	return c, nil
}

// Progress

func (s *MemoryStore) GetProgress(_ context.Context, userID, problemID string) (*model.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.progress[progressKey(userID, problemID)]; ok {
		return cloneProgress(p), nil
	}
	return nil, common.ErrNotFound
}

func (s *MemoryStore) ListProgressForUser(_ context.Context, userID string) ([]model.UserProgress, error) {
	s.mu.RLock()
	list := []model.UserProgress{}
	for _, p := range s.progress {
		if p.UserID == userID {
			list = append(list, *cloneProgress(p))
		}
	}
	s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ProblemNumber < list[j].ProblemNumber })
	return list, nil
}

func (s *MemoryStore) GetUserStats(_ context.Context, userID string) (*model.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stats[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return &model.UserStats{UserID: userID}, nil
}

// Finalization

func (s *MemoryStore) Finalize(ctx context.Context, sub *model.Submission, apply ApplyFunc) error {
	if apply == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.submissions[sub.ID]; exists {
			return fmt.Errorf("submission %s: %w", sub.ID, common.ErrAlreadyFinalized)
		}
		s.submissions[sub.ID] = cloneSubmission(sub)
		return nil
	}

	pKey := progressKey(sub.UserID, sub.ProblemID)
	unlockProgress, err := s.keys.Lock(ctx, "progress:"+pKey)
	if err != nil {
		return err
	}
	defer unlockProgress()
	unlockStats, err := s.keys.Lock(ctx, "stats:"+sub.UserID)
	if err != nil {
		return err
	}
	defer unlockStats()
	unlockProblem, err := s.keys.Lock(ctx, "problem:"+sub.ProblemID)
	if err != nil {
		return err
	}
	defer unlockProblem()

	s.mu.RLock()
	_, exists := s.submissions[sub.ID]
	problem, problemOK := s.problems[sub.ProblemID]
	var progress *model.UserProgress
	if p, ok := s.progress[pKey]; ok {
		progress = cloneProgress(p)
	}
	var stats model.UserStats
	if st, ok := s.stats[sub.UserID]; ok {
		stats = *st
	}
	var problemStats model.ProblemStats
	if problemOK {
		problemStats = problem.Stats
	}
	s.mu.RUnlock()

	if exists {
		return fmt.Errorf("submission %s: %w", sub.ID, common.ErrAlreadyFinalized)
	}
	if !problemOK {
		return common.ErrProblemNotFound
	}
	if progress == nil {
		progress = model.NewUserProgress(sub.UserID, sub.ProblemID, sub.ProblemNumber)
	}
	stats.UserID = sub.UserID

	apply(progress, &stats, &problemStats)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Run-mode finalization does not take the key locks.
	if _, exists := s.submissions[sub.ID]; exists {
		return fmt.Errorf("submission %s: %w", sub.ID, common.ErrAlreadyFinalized)
	}
	s.submissions[sub.ID] = cloneSubmission(sub)
	s.progress[pKey] = progress
	s.stats[sub.UserID] = &stats
	updated := cloneProblem(s.problems[sub.ProblemID])
	updated.Stats.TotalSubmissions = problemStats.TotalSubmissions
	updated.Stats.TotalAccepted = problemStats.TotalAccepted
	updated.Stats.AcceptanceRate = problemStats.AcceptanceRate
	s.problems[sub.ProblemID] = updated
	return nil
}

// Users

func (s *MemoryStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Email == email })
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.ID == id })
}

func (s *MemoryStore) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func cloneProblem(p *model.Problem) *model.Problem {
	cp := *p
	cp.SolutionTemplates = make(map[string]string, len(p.SolutionTemplates))
	for k, v := range p.SolutionTemplates {
		cp.SolutionTemplates[k] = v
	}
	return &cp
}

func cloneTestCase(tc model.TestCase) model.TestCase {
	tc.InputData = slices.Clone(tc.InputData)
	tc.ExpectedOutput = slices.Clone(tc.ExpectedOutput)
	return tc
}

func cloneSubmission(sub *model.Submission) *model.Submission {
	cp := *sub
	cp.TestResults = slices.Clone(sub.TestResults)
	if sub.ErrorMessage != nil {
		msg := *sub.ErrorMessage
		cp.ErrorMessage = &msg
	}
	return &cp
}

func cloneProgress(p *model.UserProgress) *model.UserProgress {
	cp := *p
	cp.LanguagesUsed = slices.Clone(p.LanguagesUsed)
	if p.BestSubmission != nil {
		best := *p.BestSubmission
		cp.BestSubmission = &best
	}
	return &cp
}
