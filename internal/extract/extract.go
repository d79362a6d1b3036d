package extract

import (
	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
)

// Strategy is one way of recovering postings from raw alert markup.
// Implementations must be best-effort: on hostile input they return whatever
// they could parse, never an error.
type Strategy interface {
	Name() string
	TryExtract(html string) []*job.Posting
}

// Extractor runs its strategies in order and returns the first non-empty
// result. Results are never merged across strategies.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New builds an extractor with the default strategy order: the pattern
// scanner first, the structured-card parser as fallback.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		strategies: []Strategy{newPatternStrategy(), newCardStrategy()},
		logger:     logger,
	}
}

// Extract parses one email body into postings. Deterministic for identical
// input; on malformed markup it degrades to an empty slice. Postings carry
// canonical links, and a link already emitted in the same call is dropped so
// only the first occurrence survives, preserving document order.
func (e *Extractor) Extract(html string) []*job.Posting {
	for _, s := range e.strategies {
		postings := dedupeByLink(s.TryExtract(html))
		if len(postings) == 0 {
			continue
		}
		e.logger.Debug("extraction strategy succeeded",
			zap.String("strategy", s.Name()),
			zap.Int("postings", len(postings)),
		)
		return postings
	}
	return []*job.Posting{}
}

func dedupeByLink(postings []*job.Posting) []*job.Posting {
	seen := make(map[string]struct{}, len(postings))
	out := make([]*job.Posting, 0, len(postings))
	for _, p := range postings {
		if p == nil || p.Link == "" {
			continue
		}
		if _, ok := seen[p.Link]; ok {
			continue
		}
		seen[p.Link] = struct{}{}
		out = append(out, p)
	}
	return out
}
