package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/backend"
)

// ErrMetadataFetchFailed marks a failed metadata request. The resolver
// recovers from it by substituting fallback questions.
var ErrMetadataFetchFailed = errors.New("interview metadata fetch failed")

// FallbackQuestions is the fixed question set used when none can be loaded.
func FallbackQuestions(jobTitle string) []string {
	return []string{
		fmt.Sprintf("What is your experience with %s?", jobTitle),
		fmt.Sprintf("Describe a challenging project you worked on related to %s.", jobTitle),
		fmt.Sprintf("How do you stay updated with the latest trends in %s?", jobTitle),
		fmt.Sprintf("What tools and technologies do you use for %s?", jobTitle),
		"Tell me about a time you had to learn a new technology.",
	}
}

// Fetcher loads stored interview metadata.
type Fetcher interface {
	Interview(ctx context.Context, id string) (backend.Interview, error)
}

// Source records where the questions of a Context came from.
type Source string

const (
	SourceNavigation Source = "navigation"
	SourceBackend    Source = "backend"
	SourceFallback   Source = "fallback"
)

// Resolver turns a navigation payload and interview id into a Context.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewResolver builds a resolver. A nil fetcher always falls back.
func NewResolver(fetcher Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve never fails: fetch and parse failures degrade to fallback questions.
// defaultName is used when the payload carries no candidate name.
func (r *Resolver) Resolve(ctx context.Context, id string, nav NavigationState, defaultName string) (Context, Source) {
	out := Context{
		ID:       strings.TrimSpace(id),
		JobTitle: DefaultJobTitle,
		Duration: DefaultDuration,
		UserName: firstNonEmpty(nav.Candidate(), defaultName, DefaultUserName),
	}

	data := nav.Data()
	if data != nil {
		out.JobTitle = firstNonEmpty(data.JobTitle, out.JobTitle)
		out.Duration = firstNonEmpty(data.Duration, out.Duration)
		if questions := data.Questions(); len(questions) > 0 {
			out.Questions = questions
			return out, SourceNavigation
		}
	}

	if r.fetcher == nil {
		r.logger.Warn("no interview backend configured; using fallback questions", "interview_id", out.ID)
		out.Questions = FallbackQuestions(out.JobTitle)
		return out, SourceFallback
	}

	record, err := r.fetcher.Interview(ctx, out.ID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMetadataFetchFailed, err)
		r.logger.Warn("interview metadata unavailable; using fallback questions",
			"interview_id", out.ID,
			"error", err.Error(),
		)
		out.Questions = FallbackQuestions(out.JobTitle)
		return out, SourceFallback
	}

	out.JobTitle = firstNonEmpty(record.Title(), out.JobTitle)
	out.Duration = firstNonEmpty(record.DurationText(), out.Duration)

	questions, err := ParseQuestions(record.Questions)
	if err != nil {
		r.logger.Warn("stored questions unreadable; using fallback questions",
			"interview_id", out.ID,
			"error", err.Error(),
		)
	}
	if len(questions) == 0 {
		out.Questions = FallbackQuestions(out.JobTitle)
		return out, SourceFallback
	}
	out.Questions = questions
	return out, SourceBackend
}

// ParseQuestions decodes the stored questions payload, which is a JSON
// string holding {"question": [...]}, or that object directly.
func ParseQuestions(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	payload := []byte(trimmed)
	var embedded string
	if err := json.Unmarshal(payload, &embedded); err == nil {
		if strings.TrimSpace(embedded) == "" {
			return nil, nil
		}
		payload = []byte(embedded)
	}

	var doc struct {
		Question []Question `json:"question"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return cleanQuestions(doc.Question), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
