package models

import "time"

// Episode kinds stored in episode_type.
const (
	EpisodeTypeInterview = "interview"
	EpisodeTypeVTR       = "vtr"
	EpisodeTypeRegular   = "regular"
)

// Episode is one production item tracked through the workflow.
type Episode struct {
	ID            int64      `json:"id"`
	EpisodeID     string     `json:"episode_id"`
	Title         string     `json:"title"`
	EpisodeType   string     `json:"episode_type"`
	Season        int        `json:"season"`
	EpisodeNumber int        `json:"episode_number"`
	Status        string     `json:"current_status"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	RecordingDate *time.Time `json:"recording_date,omitempty"`
	DirectorName  string     `json:"director_name,omitempty"`
	GuestName     string     `json:"guest_name,omitempty"` // interview episodes
	Theme         string     `json:"theme,omitempty"`      // VTR episodes
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Phase maps the stored status label onto the Status enum.
func (e Episode) Phase() Status {
	return ParseStatus(e.Status)
}

// CalendarTask is a scheduled item, either tied to an episode or a team event.
type CalendarTask struct {
	ID          string    `json:"id"`
	EpisodeID   *int64    `json:"episode_id,omitempty"`
	TaskType    string    `json:"task_type"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsTeamEvent bool      `json:"is_team_event"`
	MeetingURL  string    `json:"meeting_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
}

// Task sources.
const (
	TaskSourceDatabase       = "database"
	TaskSourceGoogleCalendar = "google_calendar"
)
