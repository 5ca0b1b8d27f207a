package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codementor/internal/common"

	"go.uber.org/zap"
)

// Judge0Client talks to a Judge0-compatible sandbox using synchronous
// submissions (wait=true).
type Judge0Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

type Judge0Options struct {
	BaseURL   string
	AuthToken string
	// HTTPClient defaults to a client without its own timeout; deadlines come
	// from the per-call context.
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

func NewJudge0Client(opts Judge0Options) *Judge0Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Judge0Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authToken:  opts.AuthToken,
		httpClient: httpClient,
		logger:     log,
	}
}

type judge0Request struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"`
	WallTimeLimit  float64 `json:"wall_time_limit"`
	MemoryLimit    int     `json:"memory_limit"` // KB
}

type judge0Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`   // seconds, e.g. "0.012"
	Memory        *int    `json:"memory"` // KB
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (c *Judge0Client) SupportsLanguage(language string) bool {
	_, ok := judge0Languages[language]
	return ok
}

func (c *Judge0Client) Execute(ctx context.Context, req Request) (*Outcome, error) {
	languageID, ok := judge0Languages[req.Language]
	if !ok {
		return nil, fmt.Errorf("%w: language %q has no sandbox mapping", common.ErrUnsupportedLanguage, req.Language)
	}

	limitSeconds := float64(req.TimeLimitMs) / 1000
	body, err := json.Marshal(judge0Request{
		SourceCode:     req.SourceCode,
		LanguageID:     languageID,
		Stdin:          req.Stdin,
		ExpectedOutput: req.ExpectedOutput,
		CPUTimeLimit:   limitSeconds,
		WallTimeLimit:  limitSeconds * 2,
		MemoryLimit:    req.MemoryLimitKb,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", common.ErrSandboxTransport, err)
	}

	url := c.baseURL + "/submissions?base64_encoded=false&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", common.ErrSandboxTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("X-Auth-Token", c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", common.ErrSandboxTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrSandboxTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: sandbox returned %d: %s", common.ErrSandboxTransport, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out judge0Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", common.ErrSandboxTimeout, err)
		}
		return nil, fmt.Errorf("%w: decode response: %v", common.ErrSandboxTransport, err)
	}

	outcome := &Outcome{
		Verdict:       MapJudge0Status(out.Status.ID),
		RawStatus:     out.Status.Description,
		Stdout:        deref(out.Stdout),
		Stderr:        deref(out.Stderr),
		CompileOutput: deref(out.CompileOutput),
		Message:       deref(out.Message),
		RuntimeMs:     parseSeconds(out.Time),
	}
	if out.Memory != nil {
		outcome.MemoryKb = *out.Memory
	}
	outcome.Verdict = deriveMemoryLimit(outcome.Verdict, outcome.MemoryKb, req.MemoryLimitKb)
	c.logger.Debugw("sandbox execution finished",
		"language", req.Language,
		"raw_status", out.Status.ID,
		"verdict", outcome.Verdict.String(),
		"runtime_ms", outcome.RuntimeMs,
		"memory_kb", outcome.MemoryKb,
	)
	return outcome, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseSeconds converts Judge0's decimal seconds string into milliseconds.
func parseSeconds(s *string) int {
	if s == nil || *s == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(*s, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return int(time.Duration(secs*float64(time.Second)).Round(time.Millisecond) / time.Millisecond)
}
