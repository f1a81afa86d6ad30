package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/config"
)

// FetchError reports a failed read from one of the dashboard tables.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Repository is the read-only view of the episodes and calendar tasks
// tables. Writes belong to the dashboard UI.
type Repository struct {
	db            *DB
	episodesTable string
	tasksTable    string
	queryTimeout  time.Duration
	loc           *time.Location
}

func NewRepository(db *DB, cfg config.DatabaseConfig, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	timeout := time.Duration(cfg.QueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Repository{
		db:            db,
		episodesTable: cfg.EpisodesTable,
		tasksTable:    cfg.TasksTable,
		queryTimeout:  timeout,
		loc:           loc,
	}
}

// ListCalendarTasks returns tasks whose start date falls within
// [start, end] (dates, inclusive), ordered by start date.
func (r *Repository) ListCalendarTasks(ctx context.Context, start, end time.Time) ([]models.CalendarTask, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := r.db.rebind(fmt.Sprintf(`SELECT id, episode_id, task_type, %s, %s, is_team_event, meeting_url, description
		FROM %s
		WHERE start_date >= ? AND start_date < ?
		ORDER BY start_date ASC`, r.db.asText("start_date"), r.db.asText("end_date"), r.tasksTable))

	from := start.In(r.loc).Format(dateLayout)
	until := end.In(r.loc).AddDate(0, 0, 1).Format(dateLayout)

	rows, err := r.db.conn.QueryContext(ctx, query, from, until)
	if err != nil {
		return nil, &FetchError{Source: "calendar tasks", Err: err}
	}
	defer rows.Close()

	tasks := []models.CalendarTask{}
	for rows.Next() {
		var (
			id                      string
			episodeID               sql.NullInt64
			taskType, startS, endS  sql.NullString
			isTeamEvent             sql.NullBool
			meetingURL, description sql.NullString
		)
		if err := rows.Scan(&id, &episodeID, &taskType, &startS, &endS, &isTeamEvent, &meetingURL, &description); err != nil {
			return nil, &FetchError{Source: "calendar tasks", Err: err}
		}

		task := models.CalendarTask{
			ID:          id,
			TaskType:    taskType.String,
			IsTeamEvent: isTeamEvent.Valid && isTeamEvent.Bool,
			MeetingURL:  meetingURL.String,
			Description: description.String,
			Source:      models.TaskSourceDatabase,
		}
		if episodeID.Valid {
			v := episodeID.Int64
			task.EpisodeID = &v
		}
		if d, ok := parseDate(startS, r.loc); ok {
			task.StartDate = d
		}
		if d, ok := parseDate(endS, r.loc); ok {
			task.EndDate = d
		} else {
			task.EndDate = task.StartDate
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Source: "calendar tasks", Err: err}
	}

	return tasks, nil
}

// ListEpisodes returns every episode, most recently updated first.
func (r *Repository) ListEpisodes(ctx context.Context) ([]models.Episode, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, episode_id, title, episode_type, season, episode_number, current_status,
		%s, %s, director_name, guest_name, theme, notes, %s, %s
		FROM %s
		ORDER BY updated_at DESC`,
		r.db.asText("due_date"), r.db.asText("recording_date"),
		r.db.asText("created_at"), r.db.asText("updated_at"), r.episodesTable)

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &FetchError{Source: "episodes", Err: err}
	}
	defer rows.Close()

	episodes := []models.Episode{}
	for rows.Next() {
		var (
			ep                                    models.Episode
			episodeID, title, episodeType, status sql.NullString
			season, number                        sql.NullInt64
			dueS, recordingS                      sql.NullString
			director, guest, theme, notes         sql.NullString
			createdS, updatedS                    sql.NullString
		)
		if err := rows.Scan(&ep.ID, &episodeID, &title, &episodeType, &season, &number, &status,
			&dueS, &recordingS, &director, &guest, &theme, &notes, &createdS, &updatedS); err != nil {
			return nil, &FetchError{Source: "episodes", Err: err}
		}

		ep.EpisodeID = episodeID.String
		ep.Title = title.String
		ep.EpisodeType = strings.TrimSpace(episodeType.String)
		ep.Season = int(season.Int64)
		ep.EpisodeNumber = int(number.Int64)
		ep.Status = strings.TrimSpace(status.String)
		ep.DirectorName = director.String
		ep.GuestName = guest.String
		ep.Theme = theme.String
		ep.Notes = notes.String

		if d, ok := parseDate(dueS, r.loc); ok {
			ep.DueDate = &d
		}
		if d, ok := parseDate(recordingS, r.loc); ok {
			ep.RecordingDate = &d
		}
		if ts, ok := parseTimestamp(createdS, r.loc); ok {
			ep.CreatedAt = ts
		}
		if ts, ok := parseTimestamp(updatedS, r.loc); ok {
			ep.UpdatedAt = ts
		}

		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Source: "episodes", Err: err}
	}

	return episodes, nil
}
