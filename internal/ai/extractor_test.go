package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestExtractorParsesRequirements(t *testing.T) {
	stub := &stubGenerator{response: `[
		{"category": "language", "item": "Go", "level": "3+ years", "priority": "must"},
		{"category": "cloud", "item": "AWS", "priority": "preferred"}
	]`}
	extractor := NewRequirementExtractor(stub, 0, zap.NewNop())

	p := &job.Posting{Title: "Backend Engineer", Company: "Acme"}
	reqs := extractor.Extract(context.Background(), p)

	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Item != "Go" || reqs[0].Category != "language" {
		t.Fatalf("unexpected first requirement: %+v", reqs[0])
	}
	if !strings.Contains(stub.lastPrompt, "Title: Backend Engineer") {
		t.Fatalf("prompt missing title: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "Company: Acme") {
		t.Fatalf("prompt missing company: %s", stub.lastPrompt)
	}
	if strings.Contains(stub.lastPrompt, "Description:") {
		t.Fatalf("empty description must be omitted from prompt")
	}
}

func TestExtractorStripsCodeFences(t *testing.T) {
	stub := &stubGenerator{response: "```json\n[{\"item\": \"Kubernetes\"}]\n```"}
	extractor := NewRequirementExtractor(stub, 0, zap.NewNop())

	reqs := extractor.Extract(context.Background(), &job.Posting{Title: "SRE"})
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Item != "Kubernetes" {
		t.Fatalf("unexpected item: %q", reqs[0].Item)
	}
}

func TestExtractorDefaultsCategoryAndPriority(t *testing.T) {
	reqs := ParseRequirements(`[{"item": "PostgreSQL"}]`)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Category != "other" {
		t.Fatalf("expected category default 'other', got %q", reqs[0].Category)
	}
	if reqs[0].Priority != job.PriorityMust {
		t.Fatalf("expected priority default 'must', got %q", reqs[0].Priority)
	}
}

func TestParseRequirementsDropsInvalidEntries(t *testing.T) {
	reqs := ParseRequirements(`[
		{"item": "Go"},
		{"category": "language"},
		{"item": "   "},
		"not an object",
		{"item": "Terraform"}
	]`)

	if len(reqs) != 2 {
		t.Fatalf("expected 2 valid requirements, got %d", len(reqs))
	}
	if reqs[0].Item != "Go" || reqs[1].Item != "Terraform" {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
}

func TestParseRequirementsMalformedResponse(t *testing.T) {
	for _, raw := range []string{"not json at all", `{"item": "Go"}`, ""} {
		if reqs := ParseRequirements(raw); len(reqs) != 0 {
			t.Fatalf("expected empty list for %q, got %d", raw, len(reqs))
		}
	}

	if reqs := ParseRequirements(`[]`); len(reqs) != 0 {
		t.Fatalf("expected empty list for empty array, got %d", len(reqs))
	}
}

func TestExtractorFallsBackToTitleOnGeneratorFailure(t *testing.T) {
	stub := &stubGenerator{err: errors.New("model unavailable")}
	extractor := NewRequirementExtractor(stub, 0, zap.NewNop())

	p := &job.Posting{Title: "Backend Engineer"}
	reqs := extractor.Extract(context.Background(), p)

	if len(reqs) != 1 {
		t.Fatalf("expected exactly 1 fallback requirement, got %d", len(reqs))
	}
	if reqs[0].Category != job.CategoryRole {
		t.Fatalf("expected category 'role', got %q", reqs[0].Category)
	}
	if reqs[0].Item != "Backend Engineer" {
		t.Fatalf("expected item to be the title, got %q", reqs[0].Item)
	}
	if reqs[0].Priority != job.PriorityMust {
		t.Fatalf("expected priority 'must', got %q", reqs[0].Priority)
	}
}
