package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
	"github.com/ashevtsov/jobsieve/internal/util"
)

// Matcher is stage B: it scores a posting against the candidate profile
// with a reasoning-capable model and produces a structured evaluation
// report with evidence citations into the numbered profile.
type Matcher struct {
	gen       Generator
	profile   string // paragraph-numbered candidate profile
	logger    *zap.Logger
	maxLogLen int
}

func NewMatcher(gen Generator, numberedProfile string, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{gen: gen, profile: numberedProfile, logger: logger, maxLogLen: maxLogLength}
}

// Match evaluates one posting in place: it attaches the report and derives
// the legacy 0-100 score and the textual summary. Any failure in the model
// call or parsing yields a zero-score report attributed to this posting;
// the batch is never aborted.
func (m *Matcher) Match(ctx context.Context, p *job.Posting) {
	prompt := buildMatchPrompt(m.profile, p)

	m.logger.Debug("deep match request",
		zap.String("link", p.Link),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.gen.GenerateContent(ctx, prompt)
	if err != nil {
		m.logger.Warn("deep match failed",
			zap.String("link", p.Link),
			zap.Error(err),
		)
		p.Report = emptyReport()
		p.Score = 0
		p.Summary = fmt.Sprintf("deep matching error: %s", err)
		return
	}

	m.logger.Debug("deep match response",
		zap.String("link", p.Link),
		zap.String("response_preview", util.TruncateForLog(raw, m.maxLogLen)),
	)

	report := ParseReport(raw)
	p.Report = report
	p.Score = LegacyScore(report)
	p.Summary = Summarize(report)
}

// ParseReport parses the stage-B response, a single JSON object. Missing
// fields default to their zero values; the score is clamped to [0, 1]. A
// response that does not parse at all yields the empty report.
func ParseReport(raw string) *job.EvaluationReport {
	cleaned := ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return emptyReport()
	}

	report := &job.EvaluationReport{
		MatchScore:     clampScore(coerceFloat(data["match_score"])),
		StrongMatches:  coerceEvidence(data["strong_matches"]),
		PartialMatches: coerceEvidence(data["partial_matches"]),
		Gaps:           coerceEvidence(data["gaps"]),
		Suggestions:    coerceStrings(data["cv_suggestions"]),
	}
	return report
}

// LegacyScore scales the report score to the 0-100 range used by the
// threshold filter and the notification sink.
func LegacyScore(r *job.EvaluationReport) int {
	return int(math.Round(clampScore(r.MatchScore) * 100))
}

// Summarize tallies evidence counts into a short legacy-compatible line,
// e.g. "2 strong match(es), 1 partial match(es), 1 gap(s)".
func Summarize(r *job.EvaluationReport) string {
	parts := make([]string, 0, 3)
	if n := len(r.StrongMatches); n > 0 {
		parts = append(parts, fmt.Sprintf("%d strong match(es)", n))
	}
	if n := len(r.PartialMatches); n > 0 {
		parts = append(parts, fmt.Sprintf("%d partial match(es)", n))
	}
	if n := len(r.Gaps); n > 0 {
		parts = append(parts, fmt.Sprintf("%d gap(s)", n))
	}
	if len(parts) == 0 {
		return "No match info"
	}
	return strings.Join(parts, ", ")
}

func emptyReport() *job.EvaluationReport {
	return &job.EvaluationReport{
		StrongMatches:  []job.Evidence{},
		PartialMatches: []job.Evidence{},
		Gaps:           []job.Evidence{},
		Suggestions:    []string{},
	}
}

// clampScore bounds a model-reported score to [0, 1]. Out-of-range and NaN
// values from malformed responses are clamped rather than rejected so they
// can never leak as out-of-range legacy scores.
func clampScore(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}

func coerceEvidence(v any) []job.Evidence {
	items, ok := v.([]any)
	if !ok {
		return []job.Evidence{}
	}
	out := make([]job.Evidence, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, job.Evidence{
			Requirement: coerceString(entry["requirement"]),
			Evidence:    coerceString(entry["evidence"]),
			Gap:         coerceString(entry["gap"]),
			Reason:      coerceString(entry["reason"]),
		})
	}
	return out
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func buildMatchPrompt(profile string, p *job.Posting) string {
	var reqs strings.Builder
	if len(p.Requirements) > 0 {
		for _, r := range p.Requirements {
			fmt.Fprintf(&reqs, "- %s (%s) [%s]\n", r.Item, r.Level, r.Priority)
		}
	} else {
		fmt.Fprintf(&reqs, "Infer from title: %s\n", p.Title)
	}

	return fmt.Sprintf(`Job matching evaluation.

## Resume (with paragraph numbers)
%s

## Job Information
Title: %s
Company: %s

## Job Requirements
%s
## Output JSON
{
  "match_score": 0.0-1.0,
  "strong_matches": [{"requirement": "...", "evidence": "Paragraph N: ..."}],
  "partial_matches": [{"requirement": "...", "evidence": "Paragraph N: ...", "gap": "..."}],
  "gaps": [{"requirement": "...", "reason": "..."}],
  "cv_suggestions": ["..."]
}

Output ONLY JSON.`, profile, p.Title, p.Company, reqs.String())
}
