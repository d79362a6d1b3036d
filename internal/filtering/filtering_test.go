package filtering

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashevtsov/jobsieve/internal/history"
	"github.com/ashevtsov/jobsieve/internal/job"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	return history.Load(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())
}

func TestPresplitPartitionIsExhaustiveAndDisjoint(t *testing.T) {
	hist := newStore(t)
	hist.Add("https://example.com/jobs/2")

	jobs := []*job.Posting{
		{Title: "Backend Engineer", Link: "https://example.com/jobs/1"},
		{Title: "Go Developer", Link: "https://example.com/jobs/2"},
		{Title: "Senior Backend Engineer", Link: "https://example.com/jobs/3"},
		{Title: "Platform Engineer", Link: "https://example.com/jobs/4"},
	}

	engine := New(hist, 50, nil, zap.NewNop())
	fresh, dupes, excluded := engine.Presplit(jobs)

	if len(fresh)+len(dupes)+len(excluded) != len(jobs) {
		t.Fatalf("partition not exhaustive: %d + %d + %d != %d",
			len(fresh), len(dupes), len(excluded), len(jobs))
	}
	if len(fresh) != 2 || len(dupes) != 1 || len(excluded) != 1 {
		t.Fatalf("unexpected partition: fresh=%d dupes=%d excluded=%d",
			len(fresh), len(dupes), len(excluded))
	}
	if dupes[0].Link != "https://example.com/jobs/2" {
		t.Fatalf("wrong posting in dupes: %s", dupes[0].Link)
	}
	if excluded[0].Title != "Senior Backend Engineer" {
		t.Fatalf("wrong posting in excluded: %s", excluded[0].Title)
	}

	// Presplit never mutates history.
	if hist.Len() != 1 {
		t.Fatalf("presplit mutated history: %d links", hist.Len())
	}
}

func TestSeniorityExclusionIsCaseInsensitiveSubstring(t *testing.T) {
	engine := New(newStore(t), 50, nil, zap.NewNop())

	excluded := []string{
		"Senior Engineer",
		"SENIOR ENGINEER",
		"Pre-Senior-ish Engineer",
		"Tech Lead",
		"Head of Platform",
		"Engineering Manager",
	}
	for _, title := range excluded {
		if !engine.IsExcludedTitle(title) {
			t.Fatalf("expected %q to be excluded", title)
		}
	}

	kept := []string{
		"Engineering Intern", // "engineer"-adjacent, no keyword hit
		"Software Engineer",
		"Backend Developer",
	}
	for _, title := range kept {
		if engine.IsExcludedTitle(title) {
			t.Fatalf("expected %q to be kept", title)
		}
	}
}

func TestFilterThresholdIsInclusive(t *testing.T) {
	engine := New(newStore(t), 50, nil, zap.NewNop())

	jobs := []*job.Posting{
		{Title: "At Threshold", Link: "https://example.com/jobs/1", Score: 50},
		{Title: "Below", Link: "https://example.com/jobs/2", Score: 49},
		{Title: "Above", Link: "https://example.com/jobs/3", Score: 90},
	}

	kept, step, err := engine.Filter(jobs)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept (>= threshold), got %d", len(kept))
	}
	if kept[0].Title != "At Threshold" {
		t.Fatalf("score equal to threshold must be included")
	}
	if step.Initial != 3 || step.Dropped != 1 || step.Left != 2 {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestFilterUpdatesHistoryAndIsIdempotent(t *testing.T) {
	hist := newStore(t)
	engine := New(hist, 50, nil, zap.NewNop())

	jobs := []*job.Posting{
		{Title: "Keeper", Link: "https://example.com/jobs/1", Score: 80},
		{Title: "Low", Link: "https://example.com/jobs/2", Score: 10},
	}

	kept, _, err := engine.Filter(jobs)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept, got %d", len(kept))
	}

	if !hist.Contains("https://example.com/jobs/1") {
		t.Fatalf("kept posting must be recorded in history")
	}
	if hist.Contains("https://example.com/jobs/2") {
		t.Fatalf("below-threshold posting must not be recorded")
	}

	// Running the same list again yields nothing: idempotent suppression.
	again, _, err := engine.Filter(jobs)
	if err != nil {
		t.Fatalf("second filter: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected empty second result, got %d", len(again))
	}
}

func TestFilterSkipsPersistWhenNothingKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	hist := history.Load(path, zap.NewNop())
	engine := New(hist, 50, nil, zap.NewNop())

	_, _, err := engine.Filter([]*job.Posting{
		{Title: "Low", Link: "https://example.com/jobs/1", Score: 0},
	})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}

	// No persist happened, so the file (and its directory) must not exist.
	if _, statErr := filepath.Glob(path); statErr != nil {
		t.Fatal(statErr)
	}
	reloaded := history.Load(path, zap.NewNop())
	if reloaded.Len() != 0 {
		t.Fatalf("history file should not have been written")
	}
}

func TestFilterLogsStepEvenWhenNothingKept(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := New(newStore(t), 50, nil, zap.New(core))

	_, _, err := engine.Filter([]*job.Posting{
		{Title: "Low", Link: "https://example.com/jobs/1", Score: 10},
	})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}

	entries := logs.FilterMessage("post-scoring filter").All()
	if len(entries) != 1 {
		t.Fatalf("expected one filter step log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["initial"] != int64(1) || fields["dropped"] != int64(1) || fields["left"] != int64(0) {
		t.Fatalf("unexpected step fields: %v", fields)
	}
}

func TestCustomExcludedTitles(t *testing.T) {
	engine := New(newStore(t), 50, []string{"staff"}, zap.NewNop())

	if !engine.IsExcludedTitle("Staff Engineer") {
		t.Fatalf("custom keyword not applied")
	}
	if engine.IsExcludedTitle("Senior Engineer") {
		t.Fatalf("default keywords must be replaced by custom list")
	}
}
