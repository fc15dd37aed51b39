// Package runner orchestrates benchmark executions: question
// acquisition, resume, sequential per-question evaluation, scoring, and
// finalization.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/credobench/runner/internal/backend"
	"github.com/credobench/runner/internal/judge"
	"github.com/credobench/runner/internal/platform"
	"github.com/credobench/runner/internal/scoring"
	"github.com/credobench/runner/internal/store"
)

// Phase identifies where a run currently is in its lifecycle.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseFetchingQuestions
	PhaseResuming
	PhaseStarting
	PhaseExecutingTier
	PhaseScoring
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseFetchingQuestions:
		return "fetching_questions"
	case PhaseResuming:
		return "resuming"
	case PhaseStarting:
		return "starting"
	case PhaseExecutingTier:
		return "executing_tier"
	case PhaseScoring:
		return "scoring"
	case PhaseComplete:
		return "complete"
	}
	return "unknown"
}

// QuestionSource fetches versioned question sets. *platform.Client
// implements it; tests substitute stubs.
type QuestionSource interface {
	GetQuestions(ctx context.Context, version string) (*platform.QuestionSet, error)
}

// ProgressFunc reports per-question progress within a tier.
type ProgressFunc func(tier, questionIndex, totalInTier int)

// PhaseFunc reports lifecycle transitions.
type PhaseFunc func(Phase)

// Options configures one benchmark execution. ModelClient and
// JudgeClient are owned by the caller, which is responsible for closing
// them on every exit path.
type Options struct {
	Model            string
	Backend          string
	BenchmarkVersion string // empty means the current published version
	JudgeModel       string
	JudgeBackend     string
	Resume           bool
	Draft            bool

	ModelClient backend.Client
	JudgeClient backend.Client

	// CallTimeout bounds each individual backend call. Zero uses
	// DefaultCallTimeout.
	CallTimeout time.Duration
}

// DefaultCallTimeout bounds a single model or judge call.
const DefaultCallTimeout = 2 * time.Minute

// Result summarizes a completed benchmark execution.
type Result struct {
	RunID            int64
	Model            string
	Backend          string
	BenchmarkVersion string
	JudgeModel       string
	JudgeBackend     string
	Score            float64
	TierScores       map[int]float64
	Tallies          map[int]scoring.TierTally
	Weights          scoring.Weights
	TotalQuestions   int
	SkippedOnResume  int
	Duration         time.Duration
	IsDraft          bool
}

// Runner executes benchmarks. Execution is strictly sequential within a
// run: one model call, then one judge call, then one committed response
// row, question by question, tier by tier.
type Runner struct {
	source   QuestionSource
	cache    *platform.QuestionCache
	store    *store.Store
	progress ProgressFunc
	onPhase  PhaseFunc
}

// New creates a Runner over a question source, a local question cache,
// and the results store.
func New(source QuestionSource, cache *platform.QuestionCache, st *store.Store) *Runner {
	return &Runner{source: source, cache: cache, store: st}
}

// SetProgressFunc sets the per-question progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// SetPhaseFunc sets the lifecycle transition callback.
func (r *Runner) SetPhaseFunc(fn PhaseFunc) {
	r.onPhase = fn
}

func (r *Runner) setPhase(p Phase) {
	if r.onPhase != nil {
		r.onPhase(p)
	}
}

// Run executes one benchmark. Per-question backend failures are absorbed
// and recorded; run-level failures (no questions, unusable store) return
// an error and leave the run either nonexistent or still incomplete.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.setPhase(PhaseInit)
	started := time.Now()

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	r.setPhase(PhaseFetchingQuestions)
	set, version, err := r.acquire(ctx, opts.BenchmarkVersion, opts.Draft)
	if err != nil {
		return nil, err
	}
	if len(set.Questions) == 0 {
		return nil, fmt.Errorf("question set %s has no questions", version)
	}

	weights := scoring.DefaultWeights()
	if set.Scoring != nil {
		w := scoring.Weights{Tier1: set.Scoring.Tier1, Tier2: set.Scoring.Tier2, Tier3: set.Scoring.Tier3}
		if w.Valid() {
			weights = w
		} else {
			slog.Warn("question set weights do not sum to 1.0, using defaults",
				"version", version, "sum", w.Sum())
		}
	}

	isDraft := opts.Draft || set.IsDraft
	if isDraft {
		slog.Info("testing draft version, results will not be published", "version", version)
	}

	// Resume reads answered ids fresh from durable storage; nothing is
	// cached across process lifetimes.
	answered := map[string]struct{}{}
	var runID int64
	if opts.Resume {
		r.setPhase(PhaseResuming)
		existing, err := r.store.GetIncompleteRun(opts.Model, version)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			runID = existing.ID
			answered, err = r.store.GetAnsweredQuestionIDs(runID)
			if err != nil {
				return nil, err
			}
			slog.Info("resuming test run", "run_id", runID, "answered", len(answered))
		}
	}
	if runID == 0 {
		r.setPhase(PhaseStarting)
		run, err := r.store.CreateRun(store.CreateRunParams{
			Model:            opts.Model,
			Backend:          opts.Backend,
			BenchmarkVersion: version,
			JudgeModel:       opts.JudgeModel,
			JudgeBackend:     opts.JudgeBackend,
			IsDraftTest:      isDraft,
		})
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	slog.Info("starting benchmark",
		"run_id", runID,
		"model", opts.Model,
		"backend", opts.Backend,
		"version", version,
		"judge_model", opts.JudgeModel,
		"judge_backend", opts.JudgeBackend,
		"questions", len(set.Questions),
	)

	j := judge.New(opts.JudgeClient, opts.JudgeModel, set.Prompts())

	for tier := 1; tier <= 3; tier++ {
		r.setPhase(PhaseExecutingTier)
		if err := r.runTier(ctx, runID, tier, set, answered, j, opts, callTimeout); err != nil {
			return nil, err
		}
	}

	r.setPhase(PhaseScoring)
	tierScores, tallies, err := r.score(runID, set)
	if err != nil {
		return nil, err
	}

	finalScore := scoring.FinalScore(tierScores, weights)
	if err := r.store.CompleteRun(runID, finalScore, tierScores[1], tierScores[2], tierScores[3]); err != nil {
		return nil, err
	}
	r.setPhase(PhaseComplete)

	slog.Info("benchmark complete",
		"run_id", runID,
		"score", finalScore,
		"duration", time.Since(started),
	)

	return &Result{
		RunID:            runID,
		Model:            opts.Model,
		Backend:          opts.Backend,
		BenchmarkVersion: version,
		JudgeModel:       opts.JudgeModel,
		JudgeBackend:     opts.JudgeBackend,
		Score:            finalScore,
		TierScores:       tierScores,
		Tallies:          tallies,
		Weights:          weights,
		TotalQuestions:   len(set.Questions),
		SkippedOnResume:  len(answered),
		Duration:         time.Since(started),
		IsDraft:          isDraft,
	}, nil
}

// runTier evaluates one tier's unanswered questions in set order.
func (r *Runner) runTier(
	ctx context.Context,
	runID int64,
	tier int,
	set *platform.QuestionSet,
	answered map[string]struct{},
	j *judge.Judge,
	opts Options,
	callTimeout time.Duration,
) error {
	questions := set.QuestionsForTier(tier)

	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			// At most the in-flight question is lost; everything already
			// committed remains resumable.
			return fmt.Errorf("run interrupted during tier %d: %w", tier, err)
		}
		if _, done := answered[string(q.ID)]; done {
			continue
		}
		if r.progress != nil {
			r.progress(tier, i+1, len(questions))
		}

		responseText, trace, elapsed, err := r.askModel(ctx, opts.ModelClient, opts.Model, q, callTimeout)
		if err != nil {
			return fmt.Errorf("run interrupted during tier %d: %w", tier, err)
		}
		ev, err := r.judgeResponse(ctx, j, q, responseText, callTimeout)
		if err != nil {
			return fmt.Errorf("run interrupted during tier %d: %w", tier, err)
		}

		// The response row is the durable checkpoint; a store failure is
		// fatal since resume correctness depends on it.
		if _, err := r.store.AddResponse(store.AddResponseParams{
			RunID:          runID,
			QuestionID:     string(q.ID),
			Tier:           tier,
			Category:       q.Category,
			ResponseText:   responseText,
			Verdict:        ev.Verdict,
			JudgeReasoning: ev.Reasoning,
			ReasoningTrace: trace,
			ResponseTimeMs: elapsed.Milliseconds(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// askModel calls the model under test. Failures are absorbed: the error
// text becomes the recorded response so the judge and later audits see
// what happened. Cancellation of the parent context is not a model
// failure and returns an error, so the in-flight question is lost
// rather than committed with a spurious verdict.
func (r *Runner) askModel(ctx context.Context, client backend.Client, model string, q platform.Question, timeout time.Duration) (text, trace string, elapsed time.Duration, err error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	completion, cerr := client.Complete(callCtx, backend.UserMessage(q.Content), model)
	elapsed = time.Since(start)
	if cerr != nil {
		if ctx.Err() != nil {
			return "", "", elapsed, ctx.Err()
		}
		slog.Error("model call failed", "question_id", q.ID, "error", cerr)
		return fmt.Sprintf("[ERROR: %v]", cerr), "", elapsed, nil
	}
	return completion.Text, completion.ReasoningTrace, elapsed, nil
}

// judgeResponse judges a response. A judge failure yields a REFUSED
// verdict whose reasoning records that the judge, not the candidate,
// failed. As with askModel, parent cancellation aborts instead of
// being absorbed.
func (r *Runner) judgeResponse(ctx context.Context, j *judge.Judge, q platform.Question, responseText string, timeout time.Duration) (*judge.Evaluation, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ev, err := j.Evaluate(callCtx, q, responseText)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("judge call failed", "question_id", q.ID, "error", err)
		return &judge.Evaluation{
			Verdict:   judge.VerdictRefused,
			Reasoning: fmt.Sprintf("Judge error: %v", err),
		}, nil
	}
	return ev, nil
}

// score recomputes tier scores from the store, the single durable source
// of truth, so resumed runs score all responses rather than just the
// ones answered in this process.
func (r *Runner) score(runID int64, set *platform.QuestionSet) (map[int]float64, map[int]scoring.TierTally, error) {
	responses, err := r.store.GetResponses(runID)
	if err != nil {
		return nil, nil, err
	}

	tallies := map[int]scoring.TierTally{}
	for _, resp := range responses {
		tally := tallies[resp.Tier]
		tally.Add(resp.Verdict)
		tallies[resp.Tier] = tally
	}

	// Finalization requires every tier fully answered.
	for tier, expected := range set.TierCounts() {
		if got := tallies[tier].Total(); got != expected {
			return nil, nil, fmt.Errorf(
				"tier %d has %d of %d questions answered, cannot finalize run %d",
				tier, got, expected, runID,
			)
		}
	}

	tierScores := map[int]float64{}
	for tier := 1; tier <= 3; tier++ {
		tierScores[tier] = tallies[tier].Score()
	}
	return tierScores, tallies, nil
}

// acquire obtains the question set for a version: cache first (never for
// drafts), then a fresh fetch, falling back to any cached copy when the
// fetch fails. It returns the set and the resolved semantic version.
func (r *Runner) acquire(ctx context.Context, version string, draft bool) (*platform.QuestionSet, string, error) {
	lookup := version
	if lookup == "" {
		lookup = "current"
	}

	var cached *platform.QuestionSet
	if !draft && lookup != "current" {
		cached = r.cache.Get(lookup)
	}
	if draft && lookup != "current" {
		// Draft content changes between runs; drop any stale entry.
		if err := r.cache.Clear(lookup); err != nil {
			slog.Warn("failed to purge draft cache entry", "version", lookup, "error", err)
		}
	}

	if cached != nil && !r.cache.IsStale(lookup) {
		slog.Debug("using cached questions", "version", lookup)
		return cached, cached.ResolveVersion(lookup), nil
	}

	set, err := r.source.GetQuestions(ctx, version)
	if err != nil {
		if cached != nil {
			slog.Warn("could not fetch fresh questions, using cache", "version", lookup, "error", err)
			return cached, cached.ResolveVersion(lookup), nil
		}
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, "", fmt.Errorf("no benchmark questions available for %q: %w", lookup, err)
		}
		return nil, "", fmt.Errorf("failed to fetch questions: %w", err)
	}

	if draft || set.IsDraft {
		if err := r.cache.Clear(lookup); err != nil {
			slog.Warn("failed to purge draft cache entry", "version", lookup, "error", err)
		}
	} else if err := r.cache.Store(set.ResolveVersion(lookup), set); err != nil {
		// Cache trouble never fails a run that has fresh questions.
		slog.Warn("failed to cache questions", "version", lookup, "error", err)
	}
	return set, set.ResolveVersion(lookup), nil
}
