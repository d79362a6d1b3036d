// Package ai implements the two-stage matching pipeline: lightweight
// requirement extraction (stage A) and deep reasoning-based evaluation
// (stage B), both speaking to a language model through the Generator
// interface. Model output is treated as hostile input: code fences are
// stripped before strict parsing, and every failure path produces a
// structurally valid default instead of an error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Generator is a synchronous prompt-in/text-out language model endpoint.
// Retry and timeout policy belong to the implementation.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Effort is the reasoning effort level passed to stage-B capable models.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ParseEffort validates a configured effort level.
func ParseEffort(s string) (Effort, error) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(s))); e {
	case "", EffortLow:
		return EffortLow, nil
	case EffortMedium, EffortHigh:
		return e, nil
	default:
		return "", fmt.Errorf("invalid reasoning effort %q: must be low, medium or high", s)
	}
}

// ExtractJSON strips an optional fenced code block wrapper from raw model
// output, leaving the payload for strict JSON parsing.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
