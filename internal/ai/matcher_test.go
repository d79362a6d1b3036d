package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
)

const sampleReport = `{
	"match_score": 0.85,
	"strong_matches": [
		{"requirement": "Go", "evidence": "5 years of Go in production", "reason": "direct experience"}
	],
	"partial_matches": [
		{"requirement": "Kubernetes", "evidence": "used managed clusters", "gap": "no operator experience"}
	],
	"gaps": [
		{"requirement": "Rust", "gap": "not mentioned in resume"}
	],
	"cv_suggestions": ["mention the migration project in the summary"]
}`

func TestMatcherFillsPostingFromReport(t *testing.T) {
	stub := &stubGenerator{response: sampleReport}
	matcher := NewMatcher(stub, "[Paragraph 1] Go developer.", 0, zap.NewNop())

	p := &job.Posting{
		Title:        "Backend Engineer",
		Requirements: []job.Requirement{{Category: "language", Item: "Go", Level: "3+ years", Priority: job.PriorityMust}},
	}
	matcher.Match(context.Background(), p)

	if p.Report == nil {
		t.Fatal("expected report to be set")
	}
	if p.Score != 85 {
		t.Fatalf("expected score 85, got %d", p.Score)
	}
	want := "1 strong match(es), 1 partial match(es), 1 gap(s)"
	if p.Summary != want {
		t.Fatalf("expected summary %q, got %q", want, p.Summary)
	}
	if !strings.Contains(stub.lastPrompt, "Go developer.") {
		t.Fatalf("prompt missing profile text: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "- Go (3+ years) [must]") {
		t.Fatalf("prompt missing requirement line: %s", stub.lastPrompt)
	}
}

func TestMatcherPromptInfersFromTitleWithoutRequirements(t *testing.T) {
	stub := &stubGenerator{response: sampleReport}
	matcher := NewMatcher(stub, "profile", 0, zap.NewNop())

	matcher.Match(context.Background(), &job.Posting{Title: "Platform Engineer"})
	if !strings.Contains(stub.lastPrompt, "Infer from title: Platform Engineer") {
		t.Fatalf("prompt missing inference hint: %s", stub.lastPrompt)
	}
}

func TestMatcherGeneratorFailure(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	matcher := NewMatcher(stub, "profile", 0, zap.NewNop())

	p := &job.Posting{Title: "Backend Engineer"}
	matcher.Match(context.Background(), p)

	if p.Score != 0 {
		t.Fatalf("expected score 0 on failure, got %d", p.Score)
	}
	if p.Report == nil || p.Report.MatchScore != 0 {
		t.Fatalf("expected zero report, got %+v", p.Report)
	}
	if !strings.HasPrefix(p.Summary, "deep matching error:") {
		t.Fatalf("expected error summary, got %q", p.Summary)
	}
}

func TestParseReportClampsScore(t *testing.T) {
	tests := []struct {
		raw   string
		score float64
	}{
		{`{"match_score": 1.5}`, 1},
		{`{"match_score": -0.3}`, 0},
		{`{"match_score": "0.7"}`, 0.7},
		{`{"match_score": "garbage"}`, 0},
		{`{"match_score": 1}`, 1},
		{`{}`, 0},
	}
	for _, tt := range tests {
		r := ParseReport(tt.raw)
		if r.MatchScore != tt.score {
			t.Errorf("ParseReport(%q).MatchScore = %v, want %v", tt.raw, r.MatchScore, tt.score)
		}
	}
}

func TestParseReportMalformedResponse(t *testing.T) {
	r := ParseReport("not json")
	if r.MatchScore != 0 || len(r.StrongMatches) != 0 || len(r.Gaps) != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestLegacyScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.854, 85},
		{0.855, 86},
		{1, 100},
		{1.5, 100},
		{-2, 0},
	}
	for _, tt := range tests {
		if got := LegacyScore(&job.EvaluationReport{MatchScore: tt.in}); got != tt.want {
			t.Errorf("LegacyScore(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	r := &job.EvaluationReport{
		StrongMatches: []job.Evidence{{Requirement: "Go"}, {Requirement: "AWS"}},
		Gaps:          []job.Evidence{{Requirement: "Rust"}},
	}
	want := "2 strong match(es), 1 gap(s)"
	if got := Summarize(r); got != want {
		t.Fatalf("Summarize() = %q, want %q", got, want)
	}

	if got := Summarize(&job.EvaluationReport{}); got != "No match info" {
		t.Fatalf("Summarize(empty) = %q, want %q", got, "No match info")
	}
}
