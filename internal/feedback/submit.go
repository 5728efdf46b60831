// Package feedback turns a finished conversation into a result record.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/backend"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
)

var (
	// ErrSubmissionFailed marks a failed feedback request. The record is
	// still produced, without feedback.
	ErrSubmissionFailed = errors.New("feedback submission failed")
	// ErrNoConversation means there was nothing to submit.
	ErrNoConversation = errors.New("no conversation data to generate feedback")
)

// Poster sends the feedback request to the interview service.
type Poster interface {
	SubmitFeedback(ctx context.Context, id string, req backend.FeedbackRequest) (backend.FeedbackResponse, error)
}

// Outcome describes how a record was produced.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Submitter generates feedback for one ended session.
type Submitter struct {
	poster  Poster
	timeout time.Duration
	logger  *slog.Logger
}

// NewSubmitter builds a submitter. timeout bounds the request; zero means no
// extra bound beyond ctx.
func NewSubmitter(poster Poster, timeout time.Duration, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Submitter{poster: poster, timeout: timeout, logger: logger}
}

// Submit always returns a record. The error is ErrNoConversation when turns
// is empty, or wraps ErrSubmissionFailed when the request failed.
func (s *Submitter) Submit(
	ctx context.Context,
	info interview.Context,
	duration string,
	turns []transcript.Turn,
) (interview.ResultRecord, Outcome, error) {
	record := interview.ResultRecord{
		ID:       info.ID,
		JobTitle: info.JobTitle,
		UserName: info.UserName,
		Duration: duration,
	}

	if len(turns) == 0 {
		return record, OutcomeSkipped, ErrNoConversation
	}
	if s.poster == nil {
		return record, OutcomeFailed, fmt.Errorf("%w: no interview backend configured", ErrSubmissionFailed)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.poster.SubmitFeedback(ctx, info.ID, backend.FeedbackRequest{
		InterviewID:  backend.InterviewID(info.ID),
		UserName:     info.UserName,
		Conversation: turns,
		Duration:     duration,
	})
	if err != nil {
		return record, OutcomeFailed, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	record.Feedback = resp.Feedback
	fields := []any{
		"interview_id", info.ID,
		"turns", len(turns),
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if resp.Score != nil {
		fields = append(fields, "score", *resp.Score)
	}
	s.logger.Info("feedback submitted", fields...)
	return record, OutcomeSubmitted, nil
}
