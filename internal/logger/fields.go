package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldStage is the structured log field key for the matching stage name.
	FieldStage = "stage"
)

// StringFields converts key/value pairs into zap fields, trimming
// whitespace and omitting pairs with an empty key or value.
func StringFields(pairs ...[2]string) []zap.Field {
	result := make([]zap.Field, 0, len(pairs))
	for _, pair := range pairs {
		key := strings.TrimSpace(pair[0])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(pair[1])
		if value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithAIFields attaches provider and model fields to the logger. A nil
// logger yields a no-op logger so callers never have to check.
func WithAIFields(logger *zap.Logger, provider, model string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	fields := StringFields(
		[2]string{FieldProvider, provider},
		[2]string{FieldModel, model},
	)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// WithStage attaches the pipeline stage name to the logger.
func WithStage(logger *zap.Logger, stage string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(stage) == "" {
		return logger
	}
	return logger.With(zap.String(FieldStage, stage))
}
