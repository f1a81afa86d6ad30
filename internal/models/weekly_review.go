package models

import "time"

// Histogram buckets for episodes with no status or type.
const (
	UnsetStatusBucket = "未設定"
	OtherTypeBucket   = "その他"
)

// WeeklyReview is the snapshot produced once per review run. It is never
// persisted.
type WeeklyReview struct {
	GeneratedAt time.Time       `json:"generated_at"`
	WeekStart   time.Time       `json:"week_start"`
	WeekEnd     time.Time       `json:"week_end"`
	Schedule    WeeklySchedule  `json:"weekly_schedule"`
	Progress    EpisodeProgress `json:"episode_progress"`
	Stats       WeeklyStats     `json:"weekly_stats"`
	Commentary  string          `json:"commentary,omitempty"`
}

// ScheduleEntry pairs a task with the date it is listed under.
type ScheduleEntry struct {
	Date time.Time    `json:"date"`
	Task CalendarTask `json:"task"`
}

// DeadlineItem is an undelivered episode due within the upcoming window.
type DeadlineItem struct {
	Episode   Episode `json:"episode"`
	DaysUntil int     `json:"days_until"`
}

// OverdueItem is an undelivered episode whose due date has passed.
type OverdueItem struct {
	Episode     Episode `json:"episode"`
	DaysOverdue int     `json:"days_overdue"`
}

type WeeklySchedule struct {
	Tasks             []ScheduleEntry `json:"tasks"`
	UpcomingDeadlines []DeadlineItem  `json:"upcoming_deadlines"`
	OverdueEpisodes   []OverdueItem   `json:"overdue_episodes"`
}

type EpisodeProgress struct {
	TotalEpisodes int            `json:"total_episodes"`
	ByStatus      map[string]int `json:"by_status"`
	ByType        map[string]int `json:"by_type"`
	RecentUpdates []Episode      `json:"recent_updates"`
}

// WeeklyStats holds the week-scoped counts plus the point-in-time
// in-progress count.
type WeeklyStats struct {
	NewEpisodes        int `json:"new_episodes"`
	CompletedEpisodes  int `json:"completed_episodes"`
	InProgressEpisodes int `json:"in_progress_episodes"`
}

// ReviewStats is the flattened summary returned to the trigger caller.
type ReviewStats struct {
	TotalEpisodes     int `json:"totalEpisodes"`
	TasksCount        int `json:"tasksCount"`
	OverdueCount      int `json:"overdueCount"`
	UpcomingDeadlines int `json:"upcomingDeadlines"`
	NewEpisodes       int `json:"newEpisodes"`
	CompletedEpisodes int `json:"completedEpisodes"`
}

// Summarize flattens the review into ReviewStats.
func (r *WeeklyReview) Summarize() ReviewStats {
	return ReviewStats{
		TotalEpisodes:     r.Progress.TotalEpisodes,
		TasksCount:        len(r.Schedule.Tasks),
		OverdueCount:      len(r.Schedule.OverdueEpisodes),
		UpcomingDeadlines: len(r.Schedule.UpcomingDeadlines),
		NewEpisodes:       r.Stats.NewEpisodes,
		CompletedEpisodes: r.Stats.CompletedEpisodes,
	}
}
