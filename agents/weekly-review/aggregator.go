package weeklyreview

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"progress-dashboard/internal/models"
)

// EpisodeSource lists every episode, most recently updated first.
type EpisodeSource interface {
	ListEpisodes(ctx context.Context) ([]models.Episode, error)
}

// TaskSource lists calendar tasks starting within [start, end], inclusive.
type TaskSource interface {
	ListCalendarTasks(ctx context.Context, start, end time.Time) ([]models.CalendarTask, error)
}

// NamedTaskSource labels a task source for logging.
type NamedTaskSource struct {
	Name   string
	Source TaskSource
}

type AggregatorOptions struct {
	Location           *time.Location
	UpcomingWindowDays int
	RecentUpdatesLimit int
	Now                func() time.Time
	Logger             *zap.Logger
}

// Aggregator builds the weekly review snapshot from the dashboard tables.
type Aggregator struct {
	episodes EpisodeSource
	tasks    []NamedTaskSource
	loc      *time.Location
	window   int
	recent   int
	now      func() time.Time
	logger   *zap.Logger
}

func NewAggregator(episodes EpisodeSource, tasks []NamedTaskSource, opts AggregatorOptions) *Aggregator {
	a := &Aggregator{
		episodes: episodes,
		tasks:    tasks,
		loc:      opts.Location,
		window:   opts.UpcomingWindowDays,
		recent:   opts.RecentUpdatesLimit,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.window <= 0 {
		a.window = 14
	}
	if a.recent <= 0 {
		a.recent = 10
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// WeekBounds returns Monday 00:00 and Sunday 00:00 of the week containing t,
// in t's location.
func WeekBounds(t time.Time) (start, end time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	start = time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 6)
}

// daysBetween counts calendar days from one date to another. Only the date
// parts matter, so DST shifts cannot skew the result.
func daysBetween(from, to time.Time) int {
	return int(epochDay(to) - epochDay(from))
}

func epochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Generate reads both sources and computes the review. Read failures are
// logged and treated as empty results.
func (a *Aggregator) Generate(ctx context.Context) (*models.WeeklyReview, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("weekly review cancelled: %w", err)
	}

	now := a.now().In(a.loc)
	weekStart, weekEnd := WeekBounds(now)

	tasks, episodes := a.fetch(ctx, weekStart, weekEnd)

	review := &models.WeeklyReview{
		GeneratedAt: now,
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
	}

	review.Schedule.Tasks = make([]models.ScheduleEntry, 0, len(tasks))
	for _, task := range tasks {
		review.Schedule.Tasks = append(review.Schedule.Tasks, models.ScheduleEntry{Date: task.StartDate, Task: task})
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	review.Schedule.UpcomingDeadlines, review.Schedule.OverdueEpisodes = a.deadlines(episodes, today)
	review.Progress = a.progress(episodes, weekStart.AddDate(0, 0, -7))
	review.Stats = weeklyStats(episodes, weekStart, weekStart.AddDate(0, 0, 7))

	a.logger.Info("weekly review generated",
		zap.String("week_start", weekStart.Format("2006-01-02")),
		zap.Int("tasks", len(review.Schedule.Tasks)),
		zap.Int("episodes", review.Progress.TotalEpisodes),
		zap.Int("overdue", len(review.Schedule.OverdueEpisodes)),
		zap.Int("upcoming", len(review.Schedule.UpcomingDeadlines)))

	return review, nil
}

// fetch runs the task and episode reads concurrently.
func (a *Aggregator) fetch(ctx context.Context, weekStart, weekEnd time.Time) ([]models.CalendarTask, []models.Episode) {
	var g errgroup.Group

	taskResults := make([][]models.CalendarTask, len(a.tasks))
	for i, src := range a.tasks {
		g.Go(func() error {
			taskResults[i] = safeFetch(a.logger, src.Name, func() ([]models.CalendarTask, error) {
				return src.Source.ListCalendarTasks(ctx, weekStart, weekEnd)
			})
			return nil
		})
	}

	var episodes []models.Episode
	if a.episodes != nil {
		g.Go(func() error {
			episodes = safeFetch(a.logger, "episodes", func() ([]models.Episode, error) {
				return a.episodes.ListEpisodes(ctx)
			})
			return nil
		})
	}

	_ = g.Wait()

	var tasks []models.CalendarTask
	for _, r := range taskResults {
		tasks = append(tasks, r...)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].StartDate.Before(tasks[j].StartDate)
	})

	if episodes == nil {
		episodes = []models.Episode{}
	}
	return tasks, episodes
}

// safeFetch degrades any failure, including a panic in the source, to an
// empty result.
func safeFetch[T any](logger *zap.Logger, source string, fn func() ([]T, error)) (out []T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("data source panicked, continuing with no rows", zap.String("source", source), zap.Any("panic", r))
			out = nil
		}
	}()

	rows, err := fn()
	if err != nil {
		logger.Warn("failed to fetch data, continuing with no rows", zap.String("source", source), zap.Error(err))
		return nil
	}
	return rows
}

func (a *Aggregator) deadlines(episodes []models.Episode, today time.Time) ([]models.DeadlineItem, []models.OverdueItem) {
	upcoming := []models.DeadlineItem{}
	overdue := []models.OverdueItem{}

	for _, ep := range episodes {
		if ep.DueDate == nil || ep.Phase().IsDelivered() {
			continue
		}
		days := daysBetween(today, ep.DueDate.In(a.loc))
		switch {
		case days >= 0 && days <= a.window:
			upcoming = append(upcoming, models.DeadlineItem{Episode: ep, DaysUntil: days})
		case days < 0:
			overdue = append(overdue, models.OverdueItem{Episode: ep, DaysOverdue: -days})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysUntil < upcoming[j].DaysUntil
	})
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].DaysOverdue > overdue[j].DaysOverdue
	})

	return upcoming, overdue
}

func (a *Aggregator) progress(episodes []models.Episode, lastWeekStart time.Time) models.EpisodeProgress {
	p := models.EpisodeProgress{
		TotalEpisodes: len(episodes),
		ByStatus:      make(map[string]int),
		ByType:        make(map[string]int),
		RecentUpdates: []models.Episode{},
	}

	for _, ep := range episodes {
		status := ep.Status
		if status == "" {
			status = models.UnsetStatusBucket
		}
		p.ByStatus[status]++

		kind := ep.EpisodeType
		if kind == "" {
			kind = models.OtherTypeBucket
		}
		p.ByType[kind]++

		// episodes arrive newest first, so the first matches are the latest
		if len(p.RecentUpdates) < a.recent && !ep.UpdatedAt.Before(lastWeekStart) {
			p.RecentUpdates = append(p.RecentUpdates, ep)
		}
	}

	return p
}

// weeklyStats counts new and completed episodes in [weekStart, nextWeekStart).
// InProgressEpisodes is a snapshot over all episodes, not just this week.
func weeklyStats(episodes []models.Episode, weekStart, nextWeekStart time.Time) models.WeeklyStats {
	inWeek := func(t time.Time) bool {
		return !t.IsZero() && !t.Before(weekStart) && t.Before(nextWeekStart)
	}

	var s models.WeeklyStats
	for _, ep := range episodes {
		phase := ep.Phase()
		if inWeek(ep.CreatedAt) {
			s.NewEpisodes++
		}
		if phase.IsDelivered() && inWeek(ep.UpdatedAt) {
			s.CompletedEpisodes++
		}
		if phase.IsInProgress() {
			s.InProgressEpisodes++
		}
	}
	return s
}
