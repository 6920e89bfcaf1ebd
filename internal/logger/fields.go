package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldChannel is the structured log field key for the source channel id.
	FieldChannel = "channel"
	// FieldMessage is the structured log field key for the source message id.
	FieldMessage = "message"
	// FieldPosting is the structured log field key for a stored posting id.
	FieldPosting = "posting"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SourceFields returns the standard fields identifying an inbound message.
// Empty values are ignored to keep log entries compact when information is
// missing.
func SourceFields(channelID, messageID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldChannel, Value: channelID},
		StringField{Key: FieldMessage, Value: messageID},
	)
}

// WithAIFields attaches the provider and model fields to the provided logger.
// If the logger is nil, a no-op logger is created to avoid panics.
func WithAIFields(logger *zap.Logger, provider, model string) *zap.Logger {
	fields := StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
	return WithFields(logger, fields...)
}
