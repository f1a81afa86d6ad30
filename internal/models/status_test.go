package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusRoundTrip(t *testing.T) {
	for status, label := range statusLabels {
		assert.Equal(t, status, ParseStatus(label), label)
		assert.Equal(t, label, status.String())
	}
	assert.Equal(t, StatusUnknown, ParseStatus(""))
	assert.Equal(t, StatusUnknown, ParseStatus("delivered"))
	assert.Equal(t, "unknown", StatusUnknown.String())
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		label      string
		delivered  bool
		inProgress bool
	}{
		{"完パケ納品", true, false},
		{"台本作成中", false, false},
		{"請求済", false, true},
		{"編集中", false, true},
		{"", false, true},
		{"未知の状態", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			s := Episode{Status: tt.label}.Phase()
			assert.Equal(t, tt.delivered, s.IsDelivered())
			assert.Equal(t, tt.inProgress, s.IsInProgress())
		})
	}
}

func TestSummarizeJSON(t *testing.T) {
	review := &WeeklyReview{
		Schedule: WeeklySchedule{
			Tasks:             make([]ScheduleEntry, 3),
			UpcomingDeadlines: make([]DeadlineItem, 2),
			OverdueEpisodes:   make([]OverdueItem, 1),
		},
		Progress: EpisodeProgress{TotalEpisodes: 9},
		Stats:    WeeklyStats{NewEpisodes: 4, CompletedEpisodes: 5, InProgressEpisodes: 6},
	}

	data, err := json.Marshal(review.Summarize())
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalEpisodes":9,"tasksCount":3,"overdueCount":1,"upcomingDeadlines":2,"newEpisodes":4,"completedEpisodes":5}`, string(data))
}
