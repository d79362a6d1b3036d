package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
	"github.com/ashevtsov/jobsieve/internal/util"
)

const defaultMaxLogLength = 200

// RequirementExtractor is stage A: it turns a posting into a structured list
// of weighted requirements using a lightweight model. Extraction never
// aborts the pipeline; the worst outcome is a single requirement synthesized
// from the job title.
type RequirementExtractor struct {
	gen       Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewRequirementExtractor(gen Generator, maxLogLength int, logger *zap.Logger) *RequirementExtractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequirementExtractor{gen: gen, logger: logger, maxLogLen: maxLogLength}
}

// Extract returns the requirements for one posting. A failed model call
// yields the title-derived fallback; a malformed response yields whatever
// entries validated.
func (e *RequirementExtractor) Extract(ctx context.Context, p *job.Posting) []job.Requirement {
	prompt := buildExtractPrompt(p)

	e.logger.Debug("requirement extraction request",
		zap.String("link", p.Link),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.gen.GenerateContent(ctx, prompt)
	if err != nil {
		e.logger.Warn("requirement extraction failed, falling back to title",
			zap.String("link", p.Link),
			zap.Error(err),
		)
		return []job.Requirement{{
			Category: job.CategoryRole,
			Item:     p.Title,
			Priority: job.PriorityMust,
		}}
	}

	e.logger.Debug("requirement extraction response",
		zap.String("link", p.Link),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	return ParseRequirements(raw)
}

// ParseRequirements parses a model response expected to be a JSON array of
// requirement objects. Entries missing `item` are dropped silently; missing
// category and priority are defaulted. A response that is not a JSON array
// yields an empty list.
func ParseRequirements(raw string) []job.Requirement {
	cleaned := ExtractJSON(raw)

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return []job.Requirement{}
	}

	out := make([]job.Requirement, 0, len(entries))
	for _, entry := range entries {
		var r job.Requirement
		if err := json.Unmarshal(entry, &r); err != nil {
			continue
		}
		if strings.TrimSpace(r.Item) == "" {
			continue
		}
		if r.Category == "" {
			r.Category = "other"
		}
		if r.Priority == "" {
			r.Priority = job.PriorityMust
		}
		out = append(out, r)
	}
	return out
}

// buildExtractPrompt keeps the prompt minimal to hold down token cost;
// empty fields are omitted entirely.
func buildExtractPrompt(p *job.Posting) string {
	var info strings.Builder
	fmt.Fprintf(&info, "Title: %s", p.Title)
	if p.Company != "" {
		fmt.Fprintf(&info, "\nCompany: %s", p.Company)
	}
	if p.Description != "" {
		fmt.Fprintf(&info, "\nDescription: %s", p.Description)
	}

	return fmt.Sprintf(`Extract job requirements from the posting below.

%s

Output JSON array of requirements. Each requirement:
- category: language/framework/cloud/database/experience/domain/soft_skill
- item: specific skill or requirement
- level: experience level if mentioned (e.g., "3+ years", "proficient")
- priority: must/preferred/nice_to_have

Example output:
[
  {"category": "language", "item": "Python", "level": "3+ years", "priority": "must"},
  {"category": "framework", "item": "Django", "level": "proficient", "priority": "preferred"}
]

Infer requirements from title if description is empty.
Output ONLY JSON array:`, info.String())
}
