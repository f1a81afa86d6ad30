package weeklyreview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/slack"
)

// Result is the outcome of one review send. It is what the HTTP trigger
// returns to its caller.
type Result struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Stats   *models.ReviewStats `json:"stats,omitempty"`
}

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, msg slack.Message) error
	Target() slack.Target
}

// Commenter produces an optional short remark on the week.
type Commenter interface {
	Comment(ctx context.Context, review *models.WeeklyReview) (string, error)
}

type Generator interface {
	Generate(ctx context.Context) (*models.WeeklyReview, error)
}

// Service runs the aggregate, format and deliver pipeline.
type Service struct {
	generator Generator
	sender    Sender
	commenter Commenter
	logger    *zap.Logger
}

func NewService(generator Generator, sender Sender, commenter Commenter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		sender:    sender,
		commenter: commenter,
		logger:    logger,
	}
}

// Preview aggregates and formats the review without delivering it.
func (s *Service) Preview(ctx context.Context) (*models.WeeklyReview, slack.Message, error) {
	review, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, slack.Message{}, fmt.Errorf("failed to generate weekly review: %w", err)
	}
	s.addCommentary(ctx, review)

	msg, err := FormatMessage(review)
	if err != nil {
		return nil, slack.Message{}, fmt.Errorf("failed to format weekly review: %w", err)
	}
	return review, msg, nil
}

// SendWeeklyReview never returns an error. Every failure, including a panic
// anywhere in the pipeline, is reported through the Result.
func (s *Service) SendWeeklyReview(ctx context.Context) (result Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("weekly review panicked", zap.Any("panic", r), zap.Stack("stack"))
			result = Result{Success: false, Message: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	review, msg, err := s.Preview(ctx)
	if err != nil {
		return s.failure(err, start)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return s.failure(fmt.Errorf("failed to deliver weekly review: %w", err), start)
	}

	stats := review.Summarize()
	message := "Weekly review sent to Slack"
	if !s.sender.Target().Enabled() {
		message = "Weekly review generated (test mode: Slack webhook not configured)"
	}

	s.logger.Info("weekly review completed",
		zap.Bool("delivered", s.sender.Target().Enabled()),
		zap.Int("total_episodes", stats.TotalEpisodes),
		zap.Int("tasks", stats.TasksCount),
		zap.Duration("duration", time.Since(start)))

	return Result{Success: true, Message: message, Stats: &stats}
}

// Delivered reports whether a successful send actually reached the webhook.
func (s *Service) Delivered() bool {
	return s.sender.Target().Enabled()
}

func (s *Service) addCommentary(ctx context.Context, review *models.WeeklyReview) {
	if s.commenter == nil {
		return
	}
	comment, err := s.commenter.Comment(ctx, review)
	if err != nil {
		s.logger.Warn("skipping AI commentary", zap.Error(err))
		return
	}
	review.Commentary = comment
}

func (s *Service) failure(err error, start time.Time) Result {
	fields := []zap.Field{zap.Error(err), zap.Duration("duration", time.Since(start))}
	var deliveryErr *slack.DeliveryError
	if errors.As(err, &deliveryErr) && deliveryErr.StatusCode != 0 {
		fields = append(fields, zap.Int("status", deliveryErr.StatusCode))
	}
	s.logger.Error("weekly review failed", fields...)

	return Result{Success: false, Message: err.Error()}
}
