package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"codementor/internal/app/evaluation"
	"codementor/internal/app/executor"
	"codementor/internal/app/progress"
	"codementor/internal/common"
	"codementor/internal/domain/model"
	"codementor/internal/domain/repository"
	"codementor/internal/platform/events"
	"codementor/internal/platform/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SubmissionServiceOptions struct {
	// FanoutLimit bounds concurrent sandbox calls within one evaluation.
	FanoutLimit int
	// TimeoutGrace is added to a test's time limit to get its call deadline.
	TimeoutGrace       time.Duration
	FinalizeMaxRetries int
	FinalizeRetryBase  time.Duration
	HistoryLimit       int
	PublishTimeout     time.Duration
}

func (o SubmissionServiceOptions) withDefaults() SubmissionServiceOptions {
	if o.FanoutLimit <= 0 {
		o.FanoutLimit = 4
	}
	if o.TimeoutGrace <= 0 {
		o.TimeoutGrace = 2 * time.Second
	}
	if o.FinalizeMaxRetries < 0 {
		o.FinalizeMaxRetries = 0
	}
	if o.FinalizeRetryBase <= 0 {
		o.FinalizeRetryBase = 25 * time.Millisecond
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 20
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 2 * time.Second
	}
	return o
}

// SubmissionDeps are the collaborators of SubmissionService. Reconcile,
// Publisher, Metrics and Logger are optional.
type SubmissionDeps struct {
	Problems    repository.ProblemRepository
	TestCases   repository.TestCaseRepository
	Submissions repository.SubmissionRepository
	Finalizer   repository.FinalizationRepository
	Executor    executor.Executor
	Reconcile   ReconcileQueue
	Publisher   events.Publisher
	Metrics     *metrics.Evaluation
	Logger      *zap.SugaredLogger
}

type SubmissionService struct {
	problemRepo    repository.ProblemRepository
	testCaseRepo   repository.TestCaseRepository
	submissionRepo repository.SubmissionRepository
	finalizer      repository.FinalizationRepository
	executor       executor.Executor
	reconcile      ReconcileQueue
	publisher      events.Publisher
	metrics        *metrics.Evaluation
	logger         *zap.SugaredLogger
	opts           SubmissionServiceOptions
	now            func() time.Time
}

func NewSubmissionService(deps SubmissionDeps, opts SubmissionServiceOptions) *SubmissionService {
	s := &SubmissionService{
		problemRepo:    deps.Problems,
		testCaseRepo:   deps.TestCases,
		submissionRepo: deps.Submissions,
		finalizer:      deps.Finalizer,
		executor:       deps.Executor,
		reconcile:      deps.Reconcile,
		publisher:      deps.Publisher,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		opts:           opts.withDefaults(),
		now:            time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.reconcile == nil {
		s.reconcile = LogReconcileQueue{Logger: s.logger}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewEvaluation(nil)
	}
	return s
}

type EvaluateRequest struct {
	UserID        string               `json:"-"`
	ProblemNumber int                  `json:"problem_number"`
	Language      string               `json:"language"`
	Code          string               `json:"code"`
	Mode          model.SubmissionType `json:"-"`
}

// Evaluate judges code against the problem's test cases for the requested
// mode and returns the finalized submission.
//
// Run mode uses only visible cases, honours ctx cancellation and never
// touches progress. Submit mode uses every case, is detached from ctx once
// started and always ends in a persisted submission or a reconcile entry.
func (s *SubmissionService) Evaluate(ctx context.Context, req EvaluateRequest) (*model.Submission, error) {
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("unknown submission type %q: %w", req.Mode, common.ErrValidation)
	}
	if req.UserID == "" {
		return nil, common.ErrUnauthorized
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("code must not be empty: %w", common.ErrValidation)
	}

	problem, err := s.problemRepo.FindProblemByNumber(ctx, req.ProblemNumber)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("problem %d: %w", req.ProblemNumber, common.ErrProblemNotFound)
		}
		return nil, fmt.Errorf("failed to load problem %d: %w", req.ProblemNumber, err)
	}
	if !problem.SupportsLanguage(req.Language) || !s.executor.SupportsLanguage(req.Language) {
		return nil, fmt.Errorf("problem %d, language %q: %w", problem.ProblemNumber, req.Language, common.ErrUnsupportedLanguage)
	}

	visibleOnly := req.Mode == model.SubmissionTypeRun
	testCases, err := s.testCaseRepo.ListTestCases(ctx, problem.ID, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to load test cases for problem %d: %w", problem.ProblemNumber, err)
	}
	if len(testCases) == 0 {
		return nil, fmt.Errorf("problem %d (%s): %w", problem.ProblemNumber, req.Mode, common.ErrNoTestCases)
	}
	sort.SliceStable(testCases, func(i, j int) bool { return testCases[i].TestCaseNumber < testCases[j].TestCaseNumber })

	if req.Mode == model.SubmissionTypeSubmit {
		ctx = context.WithoutCancel(ctx)
	}

	started := s.now()
	results, compileOutput, err := s.runTests(ctx, req.Language, req.Code, testCases)
	if err != nil {
		s.logger.Infow("Evaluation abandoned by caller",
			"user_id", req.UserID, "problem_id", problem.ID, "mode", req.Mode, "error", err)
		return nil, err
	}

	var agg evaluation.Aggregate
	var errorMessage *string
	if compileOutput != nil {
		agg = evaluation.CompilationFailure(len(testCases))
		msg := *compileOutput
		if strings.TrimSpace(msg) == "" {
			msg = "Compilation failed"
		}
		errorMessage = &msg
		results = []model.TestResult{}
	} else {
		agg = evaluation.AggregateResults(results, len(testCases))
		switch agg.Status {
		case model.VerdictInternalError:
			msg := "The judge could not evaluate every test case. This is not caused by your code."
			errorMessage = &msg
		case model.VerdictRuntimeError:
			errorMessage = runtimeErrorMessage(results, agg.Summary.FirstFailedTest)
		}
	}

	finishedAt := s.now()
	sub := &model.Submission{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		ProblemID:       problem.ID,
		ProblemNumber:   problem.ProblemNumber,
		Language:        req.Language,
		Code:            req.Code,
		SubmissionType:  req.Mode,
		Status:          agg.Status,
		TestResults:     results,
		Summary:         agg.Summary,
		Score:           evaluation.Score(agg.Status, agg.Summary.PassedTests, agg.Summary.TotalTests),
		ExecutionTimeMs: int(finishedAt.Sub(started) / time.Millisecond),
		IsAccepted:      agg.Status == model.VerdictAccepted,
		ErrorMessage:    errorMessage,
		SubmittedAt:     finishedAt.UTC(),
	}
	sub.RuntimeMs, sub.MemoryKb = evaluation.WorstPassing(results)
	if sub.IsAccepted {
		s.fillPercentiles(ctx, sub)
	}

	outcome, err := s.finalizeWithRetry(ctx, sub, problem.Difficulty)
	if err != nil {
		if sub.SubmissionType == model.SubmissionTypeSubmit {
			s.enqueueReconcile(ctx, sub, problem.Difficulty, err)
			return nil, fmt.Errorf("submission %s was judged but not saved, queued for reconciliation: %w", sub.ID, err)
		}
		return nil, fmt.Errorf("failed to save submission %s: %w", sub.ID, err)
	}

	s.afterFinalize(ctx, sub, outcome)
	return sub, nil
}

// runTests executes the ordered test cases. The first case runs alone as a
// compile probe: a Compilation Error there stops evaluation and its compile
// output is returned instead of results. The rest fan out with bounded
// parallelism; results keep test order. An error is returned only when ctx
// itself was cancelled.
func (s *SubmissionService) runTests(ctx context.Context, language, code string, testCases []model.TestCase) ([]model.TestResult, *string, error) {
	results := make([]model.TestResult, len(testCases))

	first, err := s.runOne(ctx, language, code, &testCases[0])
	if err != nil {
		return nil, nil, err
	}
	if first.Status == model.VerdictCompilationError {
		return nil, &first.CompileOutput, nil
	}
	results[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FanoutLimit)
	for i := 1; i < len(testCases); i++ {
		g.Go(func() error {
			r, err := s.runOne(gctx, language, code, &testCases[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, nil, nil
}

// runOne judges a single test case. Sandbox failures become a verdict for
// this test; only cancellation of ctx is returned as an error.
func (s *SubmissionService) runOne(ctx context.Context, language, code string, tc *model.TestCase) (model.TestResult, error) {
	result := model.TestResult{
		TestCaseID:     tc.ID,
		TestCaseNumber: tc.TestCaseNumber,
		Status:         model.VerdictInternalError,
	}

	stdin, err := evaluation.RenderStdin(tc)
	if err != nil {
		s.logger.Errorw("Malformed test case input", "test_case_id", tc.ID, "error", err)
		return result, nil
	}
	expected, err := evaluation.RenderExpected(tc)
	if err != nil {
		s.logger.Errorw("Malformed test case expected output", "test_case_id", tc.ID, "error", err)
		return result, nil
	}
	result.ExpectedOutput = expected

	timeLimitMs := tc.TimeLimitMs
	if timeLimitMs <= 0 {
		timeLimitMs = model.DefaultTimeLimitMs
	}
	memoryLimitMb := tc.MemoryLimitMb
	if memoryLimitMb <= 0 {
		memoryLimitMb = model.DefaultMemoryLimitMb
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeLimitMs)*time.Millisecond+s.opts.TimeoutGrace)
	defer cancel()

	callStart := time.Now()
	outcome, err := s.executor.Execute(callCtx, executor.Request{
		Language:       language,
		SourceCode:     code,
		Stdin:          stdin,
		ExpectedOutput: expected,
		TimeLimitMs:    timeLimitMs,
		MemoryLimitKb:  memoryLimitMb * 1024,
	})
	elapsed := time.Since(callStart)

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if errors.Is(err, common.ErrSandboxTimeout) || errors.Is(err, context.DeadlineExceeded) {
			result.Status = model.VerdictTimeLimitExceeded
			result.RuntimeMs = timeLimitMs
		} else {
			s.logger.Warnw("Sandbox call failed", "test_case_id", tc.ID, "error", err)
		}
		s.metrics.SandboxLatency.WithLabelValues(result.Status.String()).Observe(elapsed.Seconds())
		return result, nil
	}

	result.Stdout = outcome.Stdout
	result.Stderr = outcome.Stderr
	result.CompileOutput = outcome.CompileOutput
	result.UserOutput = outcome.Stdout
	result.Message = outcome.Message
	result.RuntimeMs = outcome.RuntimeMs
	result.MemoryKb = outcome.MemoryKb

	switch v := outcome.Verdict; v {
	case model.VerdictAccepted, model.VerdictWrongAnswer:
		if evaluation.OutputsMatch(expected, outcome.Stdout) {
			result.Status = model.VerdictAccepted
			result.Passed = true
		} else {
			result.Status = model.VerdictWrongAnswer
		}
	default:
		if v.IsValid() {
			result.Status = v
		}
		if result.Status == model.VerdictInternalError {
			s.logger.Warnw("Sandbox could not run test case",
				"test_case_id", tc.ID, "raw_status", outcome.RawStatus, "message", outcome.Message)
		}
	}
	s.metrics.SandboxLatency.WithLabelValues(result.Status.String()).Observe(elapsed.Seconds())
	return result, nil
}

func (s *SubmissionService) fillPercentiles(ctx context.Context, sub *model.Submission) {
	counts, err := s.submissionRepo.AcceptedPercentileCounts(ctx, sub.ProblemID, sub.RuntimeMs, sub.MemoryKb)
	if err != nil {
		s.logger.Warnw("Could not rank accepted submission",
			"submission_id", sub.ID, "problem_id", sub.ProblemID, "error", err)
		return
	}
	sub.Summary.TimePercentile, sub.Summary.MemoryPercentile = evaluation.Percentiles(evaluation.PercentileCounts{
		PriorAccepted:  counts.Total,
		RuntimeAtLeast: counts.RuntimeAtLeast,
		MemoryAtLeast:  counts.MemoryAtLeast,
	})
}

// finalizeWithRetry persists sub (and its progress effects in submit mode),
// retrying with exponential backoff while the store reports contention.
func (s *SubmissionService) finalizeWithRetry(ctx context.Context, sub *model.Submission, difficulty model.ProblemDifficulty) (progress.Outcome, error) {
	var outcome progress.Outcome
	var apply repository.ApplyFunc
	if sub.SubmissionType == model.SubmissionTypeSubmit {
		apply = func(p *model.UserProgress, st *model.UserStats, ps *model.ProblemStats) {
			outcome = progress.Apply(p, st, ps, sub, difficulty, sub.SubmittedAt)
		}
	}

	backoff := s.opts.FinalizeRetryBase
	for attempt := 0; ; attempt++ {
		err := s.finalizer.Finalize(ctx, sub, apply)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, common.ErrPersistenceConflict) || attempt >= s.opts.FinalizeMaxRetries {
			return outcome, err
		}
		s.metrics.FinalizeRetries.Inc()
		s.logger.Infow("Retrying finalization after conflict",
			"submission_id", sub.ID, "attempt", attempt+1, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcome, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (s *SubmissionService) enqueueReconcile(ctx context.Context, sub *model.Submission, difficulty model.ProblemDifficulty, cause error) {
	entry := ReconcileEntry{
		Submission: *sub,
		Difficulty: difficulty,
		EnqueuedAt: s.now().UTC(),
		LastError:  cause.Error(),
	}
	if err := s.reconcile.Enqueue(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Errorw("Could not queue submission for reconciliation",
			"submission_id", sub.ID, "user_id", sub.UserID, "error", err, "cause", cause)
		return
	}
	s.logger.Warnw("Submission queued for reconciliation",
		"submission_id", sub.ID, "user_id", sub.UserID, "cause", cause)
}

// Reconcile replays a queued finalization. A submission that was finalized
// in the meantime counts as done.
func (s *SubmissionService) Reconcile(ctx context.Context, entry ReconcileEntry) error {
	sub := entry.Submission
	outcome, err := s.finalizeWithRetry(ctx, &sub, entry.Difficulty)
	if errors.Is(err, common.ErrAlreadyFinalized) {
		s.logger.Infow("Reconcile entry already applied", "submission_id", sub.ID)
		return nil
	}
	if err != nil {
		return err
	}
	s.afterFinalize(ctx, &sub, outcome)
	return nil
}

func (s *SubmissionService) afterFinalize(ctx context.Context, sub *model.Submission, outcome progress.Outcome) {
	s.metrics.Finalized.WithLabelValues(string(sub.SubmissionType), sub.Status.String()).Inc()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()
	event := events.SubmissionFinalized{
		Type:          events.TypeSubmissionFinalized,
		SubmissionID:  sub.ID,
		UserID:        sub.UserID,
		ProblemID:     sub.ProblemID,
		ProblemNumber: sub.ProblemNumber,
		Mode:          string(sub.SubmissionType),
		Status:        sub.Status.String(),
		Score:         sub.Score,
		RuntimeMs:     sub.RuntimeMs,
		MemoryKb:      sub.MemoryKb,
		FirstSolve:    outcome.FirstSolve,
		BestReplaced:  outcome.BestReplaced,
		FinalizedAt:   s.now().UTC(),
	}
	if err := s.publisher.Publish(pubCtx, sub.UserID, event); err != nil {
		s.logger.Warnw("Failed to publish submission event", "submission_id", sub.ID, "error", err)
	}

	s.logger.Infow("Submission finalized",
		"submission_id", sub.ID,
		"user_id", sub.UserID,
		"problem_id", sub.ProblemID,
		"mode", sub.SubmissionType,
		"status", sub.Status.String(),
		"score", sub.Score,
		"passed", sub.Summary.PassedTests,
		"total", sub.Summary.TotalTests,
		"first_solve", outcome.FirstSolve,
		"previous_status", outcome.PreviousStatus,
		"best_replaced", outcome.BestReplaced,
		"new_streak_day", outcome.NewStreakDay,
	)
}

// runtimeErrorMessage reports how the first crashing test ended: the
// sandbox's message, else the last line of its stderr.
func runtimeErrorMessage(results []model.TestResult, firstFailed int) *string {
	for _, r := range results {
		if r.TestCaseNumber != firstFailed {
			continue
		}
		msg := strings.TrimSpace(r.Message)
		if msg == "" {
			lines := strings.Split(strings.TrimSpace(r.Stderr), "\n")
			msg = strings.TrimSpace(lines[len(lines)-1])
		}
		if msg == "" {
			return nil
		}
		msg = fmt.Sprintf("Runtime error on test %d: %s", firstFailed, msg)
		return &msg
	}
	return nil
}

// GetSubmission returns a submission owned by userID.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("submission %s: %w", submissionID, common.ErrForbidden)
	}
	return sub, nil
}

// ListHistory returns the caller's most recent submissions for a problem.
func (s *SubmissionService) ListHistory(ctx context.Context, userID string, problemNumber int) ([]model.Submission, error) {
	problem, err := s.problemRepo.FindProblemByNumber(ctx, problemNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem %d: %w", problemNumber, err)
	}
	subs, err := s.submissionRepo.ListRecentForUserProblem(ctx, userID, problem.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
