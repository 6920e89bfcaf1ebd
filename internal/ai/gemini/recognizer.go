package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/ai"
	"github.com/addislabs/jobsift/internal/logger"
	"github.com/addislabs/jobsift/internal/posting"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Recognizer is the Gemini-backed implementation of ai.Recognizer. It asks
// the model for a JSON entity list and parses it defensively; anything the
// model reports outside the allowed field set is dropped.
type Recognizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewRecognizer wraps a content generator into an entity recognizer.
func NewRecognizer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Recognizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Recognizer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Recognize sends the posting text to Gemini and returns the recognized
// entities. Errors are returned as-is; the caller decides how to degrade.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]ai.Entity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	prompt := buildPrompt(text)

	r.logger.Debug("gemini recognize request",
		zap.String(logger.FieldModel, r.generator.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini recognize response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, r.maxLogLen)),
	)

	return parseEntities(raw)
}

func buildPrompt(text string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Extract job posting fields as JSON entities from:\n{{TEXT}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{TEXT}}", text)
}

// allowedFields restricts recognized entities to the posting's settable
// fields, the description excepted: the model must not rewrite the body.
var allowedFields = map[string]bool{
	posting.FieldTitle:        true,
	posting.FieldCompany:      true,
	posting.FieldLocation:     true,
	posting.FieldJobType:      true,
	posting.FieldSalaryMin:    true,
	posting.FieldSalaryMax:    true,
	posting.FieldRequirements: true,
}

func parseEntities(raw string) ([]ai.Entity, error) {
	cleaned := extractJSON(raw)

	var payload struct {
		Entities []struct {
			Field      any `json:"field"`
			Value      any `json:"value"`
			Confidence any `json:"confidence"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	entities := make([]ai.Entity, 0, len(payload.Entities))
	for _, e := range payload.Entities {
		field := strings.ToLower(strings.TrimSpace(coerceString(e.Field)))
		if !allowedFields[field] {
			continue
		}

		value := strings.ToLower(strings.TrimSpace(coerceString(e.Value)))
		if value == "" {
			continue
		}

		confidence := coerceFloat(e.Confidence)
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}

		entities = append(entities, ai.Entity{Field: field, Value: value, Confidence: confidence})
	}

	return entities, nil
}

func extractJSON(raw string) string {
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

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
