// Package pipeline runs one job alert cycle as a strict linear sequence
// of stages: fetch, extract, presplit, requirements, match, filter,
// notify.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashevtsov/jobsieve/internal/extract"
	"github.com/ashevtsov/jobsieve/internal/filtering"
	"github.com/ashevtsov/jobsieve/internal/job"
	"github.com/ashevtsov/jobsieve/internal/notify"
)

// Source provides raw HTML alert emails.
type Source interface {
	FetchHTML(ctx context.Context) ([]string, error)
}

// RequirementExtractor is stage A.
type RequirementExtractor interface {
	Extract(ctx context.Context, p *job.Posting) []job.Requirement
}

// Matcher is stage B.
type Matcher interface {
	Match(ctx context.Context, p *job.Posting)
}

// State is owned by one run and carries everything the stages produce.
type State struct {
	RawEmails         []string
	Jobs              []*job.Posting
	Duplicates        []*job.Posting
	Excluded          []*job.Posting
	Matched           []*job.Posting
	NotificationsSent int
}

// Pipeline wires the stages together.
type Pipeline struct {
	source      Source
	extractor   *extract.Extractor
	engine      *filtering.Engine
	requirement RequirementExtractor
	matcher     Matcher
	notifier    notify.Notifier
	concurrency int
	logger      *zap.Logger
}

func New(
	source Source,
	extractor *extract.Extractor,
	engine *filtering.Engine,
	requirement RequirementExtractor,
	matcher Matcher,
	notifier notify.Notifier,
	concurrency int,
	logger *zap.Logger,
) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:      source,
		extractor:   extractor,
		engine:      engine,
		requirement: requirement,
		matcher:     matcher,
		notifier:    notifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes one full cycle. Stage failures in the per-job loops are
// absorbed by the stages themselves; only fetch, history persistence and
// notification failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*State, error) {
	state := &State{}

	emails, err := p.source.FetchHTML(ctx)
	if err != nil {
		return state, fmt.Errorf("fetch emails: %w", err)
	}
	state.RawEmails = emails

	state.Jobs = p.extractAll(emails)
	p.logger.Info("extracted postings",
		zap.Int("emails", len(emails)),
		zap.Int("postings", len(state.Jobs)),
	)

	fresh, dupes, excluded := p.engine.Presplit(state.Jobs)
	state.Duplicates = dupes
	state.Excluded = excluded

	if len(fresh) == 0 {
		p.logger.Info("nothing to analyze")
		return state, nil
	}

	if err := p.analyze(ctx, fresh); err != nil {
		return state, err
	}

	matched, step, err := p.engine.Filter(fresh)
	state.Matched = matched
	if err != nil {
		return state, err
	}
	p.logger.Info("filtered postings",
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)

	if len(matched) == 0 {
		p.logger.Info("no matches above threshold")
		return state, nil
	}
	p.logger.Info("matches ready", zap.Strings("titles", job.Titles(matched)))

	sent, err := p.notifier.Notify(matched)
	state.NotificationsSent = sent
	if err != nil {
		return state, fmt.Errorf("notify: %w", err)
	}

	return state, nil
}

// extractAll parses every email and flattens the postings, keeping the
// first occurrence of each canonical link across emails.
func (p *Pipeline) extractAll(emails []string) []*job.Posting {
	seen := make(map[string]struct{})
	jobs := make([]*job.Posting, 0)
	for _, html := range emails {
		for _, posting := range p.extractor.Extract(html) {
			if _, ok := seen[posting.Link]; ok {
				continue
			}
			seen[posting.Link] = struct{}{}
			jobs = append(jobs, posting)
		}
	}
	return jobs
}

// analyze runs stages A and B over the fresh postings. Each posting is
// handled by one goroutine so both stages see a consistent posting; the
// group is bounded by the configured concurrency.
func (p *Pipeline) analyze(ctx context.Context, fresh []*job.Posting) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)

	for _, posting := range fresh {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			posting.Requirements = p.requirement.Extract(ctx, posting)
			p.matcher.Match(ctx, posting)
			p.logger.Info("analyzed posting",
				zap.String("title", posting.Title),
				zap.Int("score", posting.Score),
				zap.String("summary", posting.Summary),
			)
			return nil
		})
	}

	return group.Wait()
}

// Summary is the JSON run report written next to the logs.
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	Statistics Statistics   `json:"statistics"`
	Jobs       []JobOutcome `json:"all_jobs_processed"`
}

type Statistics struct {
	EmailsProcessed   int `json:"emails_processed"`
	JobsFound         int `json:"jobs_found"`
	JobsAlreadySent   int `json:"jobs_already_sent"`
	JobsExcluded      int `json:"jobs_excluded"`
	JobsMatched       int `json:"jobs_matched"`
	NotificationsSent int `json:"notifications_sent"`
}

type JobOutcome struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Link    string `json:"link"`
	Score   int    `json:"score"`
	Summary string `json:"summary,omitempty"`
	Status  string `json:"status"`
}

// Summarize builds the run report from the final state.
func (s *State) Summarize(now time.Time) *Summary {
	matched := make(map[string]struct{}, len(s.Matched))
	for _, p := range s.Matched {
		matched[p.Link] = struct{}{}
	}
	dupes := make(map[string]struct{}, len(s.Duplicates))
	for _, p := range s.Duplicates {
		dupes[p.Link] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(s.Excluded))
	for _, p := range s.Excluded {
		excluded[p.Link] = struct{}{}
	}

	outcomes := make([]JobOutcome, 0, len(s.Jobs))
	for _, p := range s.Jobs {
		status := "filtered"
		if _, ok := matched[p.Link]; ok {
			status = "matched"
		} else if _, ok := dupes[p.Link]; ok {
			status = "already_sent"
		} else if _, ok := excluded[p.Link]; ok {
			status = "excluded"
		}
		outcomes = append(outcomes, JobOutcome{
			Title:   p.Title,
			Company: p.Company,
			Link:    p.Link,
			Score:   p.Score,
			Summary: p.Summary,
			Status:  status,
		})
	}

	return &Summary{
		Timestamp: now.Format(time.RFC3339),
		Statistics: Statistics{
			EmailsProcessed:   len(s.RawEmails),
			JobsFound:         len(s.Jobs),
			JobsAlreadySent:   len(s.Duplicates),
			JobsExcluded:      len(s.Excluded),
			JobsMatched:       len(s.Matched),
			NotificationsSent: s.NotificationsSent,
		},
		Jobs: outcomes,
	}
}

// WriteSummary writes the run report under dir as a timestamped JSON file
// and returns the file path.
func WriteSummary(dir string, summary *Summary, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("run_summary_%s.json", now.Format("20060102_150405")))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
