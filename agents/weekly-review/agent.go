package weeklyreview

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/ai"
	"progress-dashboard/shared/config"
	"progress-dashboard/shared/gcal"
	"progress-dashboard/shared/scheduler"
	"progress-dashboard/shared/slack"
	"progress-dashboard/shared/storage"
)

// ledgerRetention is how long delivered weeks are remembered.
const ledgerRetention = 60 * 24 * time.Hour

// ReviewMetrics represents the outcome of one scheduled review run
type ReviewMetrics struct {
	RunID     string              `json:"run_id"`
	WeekStart string              `json:"week_start"`
	Skipped   bool                `json:"skipped"`
	Delivered bool                `json:"delivered"`
	Stats     *models.ReviewStats `json:"stats,omitempty"`
}

// GetSummary implements the scheduler.Metrics interface
func (m ReviewMetrics) GetSummary() string {
	switch {
	case m.Skipped:
		return fmt.Sprintf("review for week of %s already delivered, skipped", m.WeekStart)
	case m.Stats == nil:
		return fmt.Sprintf("review for week of %s finished without stats", m.WeekStart)
	case m.Delivered:
		return fmt.Sprintf("review for week of %s sent: %d episodes, %d overdue, %d upcoming",
			m.WeekStart, m.Stats.TotalEpisodes, m.Stats.OverdueCount, m.Stats.UpcomingDeadlines)
	default:
		return fmt.Sprintf("review for week of %s generated in test mode: %d episodes", m.WeekStart, m.Stats.TotalEpisodes)
	}
}

// WeeklyReviewAgent implements the scheduler.Agent interface
type WeeklyReviewAgent struct {
	config  *config.Config
	logger  *zap.Logger
	now     func() time.Time
	db      *storage.DB
	service *Service
	ledger  *storage.DeliveryLedger
}

func NewWeeklyReviewAgent(cfg *config.Config, logger *zap.Logger) *WeeklyReviewAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyReviewAgent{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (a *WeeklyReviewAgent) Name() string {
	return "Weekly Review Agent"
}

// Initialize builds the pipeline from configuration. Pieces that are already
// set are kept.
func (a *WeeklyReviewAgent) Initialize(ctx context.Context) error {
	a.logger.Info("initializing agent", zap.String("agent", a.Name()))
	loc := a.config.Location()

	if a.service == nil {
		if a.db == nil {
			db, err := storage.Open(ctx, a.config.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			a.db = db
			a.logger.Info("database connected", zap.String("driver", a.config.Database.Driver))
		}

		repo := storage.NewRepository(a.db, a.config.Database, loc)
		sources := []NamedTaskSource{{Name: a.config.Database.TasksTable, Source: repo}}

		if a.config.GoogleCalendar.Enabled {
			client, err := gcal.NewClient(ctx, &a.config.GoogleCalendar, loc, a.logger)
			if err != nil {
				a.logger.Warn("Google Calendar unavailable, continuing without team events", zap.Error(err))
			} else {
				sources = append(sources, NamedTaskSource{Name: "google_calendar", Source: client})
				a.logger.Info("Google Calendar client initialized", zap.String("calendar_id", a.config.GoogleCalendar.CalendarID))
			}
		}

		var commenter Commenter
		if a.config.AI.Enabled {
			commentator, err := ai.NewCommentator(ctx, &a.config.AI)
			if err != nil {
				a.logger.Warn("AI commentary unavailable", zap.Error(err))
			} else {
				commenter = commentator
				a.logger.Info("AI commentary enabled", zap.String("model", a.config.AI.Model))
			}
		}

		target := slack.ParseTarget(a.config.Slack.WebhookURL)
		if !target.Enabled() {
			a.logger.Warn("Slack webhook not configured, reviews will run in test mode")
		}
		notifier := slack.NewNotifier(target, time.Duration(a.config.Slack.TimeoutSeconds)*time.Second, a.logger)

		aggregator := NewAggregator(repo, sources, AggregatorOptions{
			Location:           loc,
			UpcomingWindowDays: a.config.Review.UpcomingWindowDays,
			RecentUpdatesLimit: a.config.Review.RecentUpdatesLimit,
			Now:                a.now,
			Logger:             a.logger,
		})
		a.service = NewService(aggregator, notifier, commenter, a.logger)
	}

	if a.ledger == nil {
		ledger, err := storage.NewDeliveryLedger(a.config.DataDir, ledgerRetention)
		if err != nil {
			return fmt.Errorf("failed to open delivery ledger: %w", err)
		}
		a.ledger = ledger
		a.logger.Info("delivery ledger loaded", zap.Int("weeks", ledger.Count()))
	}

	return nil
}

// Service returns the pipeline built by Initialize.
func (a *WeeklyReviewAgent) Service() *Service {
	return a.service
}

// RunOnce sends the review for the current week unless the ledger shows it
// was already delivered.
func (a *WeeklyReviewAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	if events == nil {
		events = &scheduler.AgentEvents{}
	}

	weekStart, _ := WeekBounds(a.now().In(a.config.Location()))
	metrics := ReviewMetrics{RunID: events.RunID, WeekStart: storage.WeekKey(weekStart)}
	logger := a.logger.With(zap.String("run_id", events.RunID), zap.String("week_start", metrics.WeekStart))

	if a.ledger.IsDelivered(weekStart) {
		logger.Info("review already delivered for this week, skipping")
		metrics.Skipped = true
		if events.OnSuccess != nil {
			events.OnSuccess(metrics, time.Since(startTime))
		}
		return nil
	}

	result := a.service.SendWeeklyReview(ctx)
	if !result.Success {
		err := fmt.Errorf("weekly review failed: %s", result.Message)
		if events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return err
	}
	metrics.Stats = result.Stats

	if a.service.Delivered() {
		metrics.Delivered = true
		if err := a.ledger.MarkDelivered(weekStart); err != nil {
			logger.Warn("failed to record delivery", zap.Error(err))
			if events.OnPartialFailure != nil {
				events.OnPartialFailure(fmt.Errorf("failed to record delivery: %w", err), time.Since(startTime))
			}
		}
	}

	if events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	logger.Info("weekly review run complete", zap.Bool("delivered", metrics.Delivered))
	return nil
}

func (a *WeeklyReviewAgent) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
