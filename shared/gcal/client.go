package gcal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client reads team events (meetings, studio bookings) from a shared Google
// Calendar and presents them as calendar tasks.
type Client struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

func NewClient(ctx context.Context, cfg *config.GoogleCalendarConfig, loc *time.Location, logger *zap.Logger) (*Client, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	store := tokenStore{path: cfg.TokenFile}
	token, err := authorize(ctx, oauthConfig, store, os.Stdout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}
	tokenSource := newPersistingSource(oauthConfig.TokenSource(context.WithoutCancel(ctx), token), store, token, logger)

	service, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Calendar service: %w", err)
	}

	return NewClientWithService(service, cfg.CalendarID, loc), nil
}

// NewClientWithService wraps an already configured calendar service.
func NewClientWithService(service *calendar.Service, calendarID string, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{service: service, calendarID: calendarID, loc: loc}
}

// ListCalendarTasks returns events starting on a date within [start, end]
// (inclusive), ordered by start time.
func (c *Client) ListCalendarTasks(ctx context.Context, start, end time.Time) ([]models.CalendarTask, error) {
	from := dayStart(start, c.loc)
	until := dayStart(end, c.loc).AddDate(0, 0, 1)

	var tasks []models.CalendarTask
	call := c.service.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(until.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(false)

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			task, ok := eventToTask(ev, c.loc)
			if !ok {
				continue
			}
			// Events that began before the window but overlap it are listed
			// by the API; the weekly schedule only wants ones starting inside.
			if task.StartDate.Before(from) || !task.StartDate.Before(until) {
				continue
			}
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for calendar %s: %w", c.calendarID, err)
	}

	return tasks, nil
}

func eventToTask(ev *calendar.Event, loc *time.Location) (models.CalendarTask, bool) {
	if ev == nil || ev.Status == "cancelled" || ev.Start == nil {
		return models.CalendarTask{}, false
	}

	startDate, ok := eventDate(ev.Start, loc)
	if !ok {
		return models.CalendarTask{}, false
	}
	endDate := startDate
	if ev.End != nil {
		if d, ok := eventDate(ev.End, loc); ok {
			// All-day events carry an exclusive end date.
			if ev.End.Date != "" && d.After(startDate) {
				d = d.AddDate(0, 0, -1)
			}
			endDate = d
		}
	}

	meetingURL := ev.HangoutLink
	if meetingURL == "" && strings.HasPrefix(ev.Location, "http") {
		meetingURL = ev.Location
	}

	taskType := strings.TrimSpace(ev.Summary)
	if taskType == "" {
		taskType = "チームイベント"
	}

	return models.CalendarTask{
		ID:          "gcal:" + ev.Id,
		TaskType:    taskType,
		StartDate:   startDate,
		EndDate:     endDate,
		IsTeamEvent: true,
		MeetingURL:  meetingURL,
		Description: ev.Description,
		Source:      models.TaskSourceGoogleCalendar,
	}, true
}

func eventDate(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return dayStart(t, loc), true
	}
	return time.Time{}, false
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
