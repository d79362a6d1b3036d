// Package filtering implements the two-phase dedup/filter engine that runs
// around the expensive matching stages: a cheap pre-scoring split so known
// postings never reach the language models, and an authoritative post-scoring
// filter that updates the notification history.
package filtering

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/history"
	"github.com/ashevtsov/jobsieve/internal/job"
)

// DefaultExcludedTitles are the seniority keywords postings are dropped on.
// Matching is case-insensitive substring matching against the title.
var DefaultExcludedTitles = []string{
	"senior",
	"lead",
	"principal",
	"architect",
	"director",
	"manager",
	"head of",
}

// Step describes the outcome of one filtering phase.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Engine applies role exclusion, history dedup and score filtering over one
// shared history store. It is single-writer: only Filter mutates history.
type Engine struct {
	history   *history.Store
	threshold int
	excluded  []string
	logger    *zap.Logger
}

// New builds an engine. A nil keyword list falls back to the defaults;
// pass a non-nil empty slice to disable title exclusion.
func New(hist *history.Store, threshold int, excludedTitles []string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if excludedTitles == nil {
		excludedTitles = DefaultExcludedTitles
	}
	lowered := make([]string, 0, len(excludedTitles))
	for _, kw := range excludedTitles {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Engine{
		history:   hist,
		threshold: threshold,
		excluded:  lowered,
		logger:    logger,
	}
}

// Presplit partitions postings before scoring: excluded titles go to
// excluded, postings already in history go to dupes, the rest to fresh.
// The partition is exhaustive and disjoint:
// len(fresh) + len(dupes) + len(excluded) == len(jobs). History is not
// mutated.
func (e *Engine) Presplit(jobs []*job.Posting) (fresh, dupes, excluded []*job.Posting) {
	fresh = make([]*job.Posting, 0, len(jobs))
	dupes = make([]*job.Posting, 0)
	excluded = make([]*job.Posting, 0)

	for _, j := range jobs {
		if e.IsExcludedTitle(j.Title) {
			excluded = append(excluded, j)
			continue
		}
		if e.history.Contains(j.Link) {
			dupes = append(dupes, j)
			continue
		}
		fresh = append(fresh, j)
	}

	e.logger.Info("pre-scoring split",
		zap.Int("total", len(jobs)),
		zap.Int("excluded_titles", len(excluded)),
		zap.Int("already_sent", len(dupes)),
		zap.Int("to_analyze", len(fresh)),
	)
	if len(dupes) > 0 {
		e.logger.Debug("already sent", zap.Strings("links", job.Links(dupes)))
	}
	return fresh, dupes, excluded
}

// IsExcludedTitle reports whether the title hits a seniority keyword.
func (e *Engine) IsExcludedTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range e.excluded {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Filter keeps scored postings with score >= threshold whose link is not in
// history, records kept links, and persists history once iff anything was
// kept. A posting that scores below threshold is deliberately not recorded:
// it may be re-evaluated in a later run if it reappears in source data.
func (e *Engine) Filter(jobs []*job.Posting) ([]*job.Posting, Step, error) {
	kept := make([]*job.Posting, 0, len(jobs))

	for _, j := range jobs {
		if j.Score < e.threshold {
			e.logger.Debug("posting below threshold",
				zap.String("title", j.Title),
				zap.Int("score", j.Score),
				zap.Int("threshold", e.threshold),
			)
			continue
		}
		if e.history.Contains(j.Link) {
			continue
		}
		kept = append(kept, j)
		e.history.Add(j.Link)
	}

	step := Step{Initial: len(jobs), Dropped: len(jobs) - len(kept), Left: len(kept)}
	e.logger.Info("post-scoring filter",
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)

	if len(kept) == 0 {
		return kept, step, nil
	}

	if err := e.history.Persist(); err != nil {
		// The in-memory dedup decision stands for this run; only the
		// cross-run guarantee degrades.
		return kept, step, fmt.Errorf("persist history: %w", err)
	}
	return kept, step, nil
}
