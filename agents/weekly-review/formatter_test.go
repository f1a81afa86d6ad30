package weeklyreview

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/slack"
)

func baseReview() *models.WeeklyReview {
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, tokyo)
	return &models.WeeklyReview{
		GeneratedAt: fixedNow,
		WeekStart:   start,
		WeekEnd:     start.AddDate(0, 0, 6),
		Progress: models.EpisodeProgress{
			ByStatus: map[string]int{},
			ByType:   map[string]int{},
		},
	}
}

func sectionKinds(msg slack.Message) []slack.SectionKind {
	kinds := make([]slack.SectionKind, 0, len(msg.Sections))
	for _, s := range msg.Sections {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestFormatMessageNilReview(t *testing.T) {
	_, err := FormatMessage(nil)
	assert.Error(t, err)
}

func TestFormatMessageOmitsEmptySections(t *testing.T) {
	msg, err := FormatMessage(baseReview())
	require.NoError(t, err)

	assert.Len(t, msg.Sections, 3)
	assert.Len(t, msg.Payload().Blocks, 3)
	assert.Equal(t, []slack.SectionKind{slack.SectionHeader, slack.SectionDateRange, slack.SectionSummary}, sectionKinds(msg))
	assert.Equal(t, "Weekly Episode Progress Review: 10月19日 〜 10月25日", msg.Text)
}

func TestFormatMessageSectionOrder(t *testing.T) {
	review := baseReview()
	review.Progress.ByStatus = map[string]int{"編集中": 2}
	due := fixedNow
	review.Schedule.OverdueEpisodes = []models.OverdueItem{{Episode: models.Episode{EpisodeID: "PL-003", Title: "京都ロケ", DueDate: &due}, DaysOverdue: 3}}
	review.Schedule.UpcomingDeadlines = []models.DeadlineItem{{Episode: models.Episode{EpisodeID: "PL-001", Title: "スタジオ収録"}, DaysUntil: 0}}
	review.Commentary = "  今週は順調です。 "

	msg, err := FormatMessage(review)
	require.NoError(t, err)

	assert.Equal(t, []slack.SectionKind{
		slack.SectionHeader,
		slack.SectionDateRange,
		slack.SectionSummary,
		slack.SectionStatusHistogram,
		slack.SectionOverdueAlert,
		slack.SectionUpcomingDeadlines,
		slack.SectionCommentary,
	}, sectionKinds(msg))

	assert.Equal(t, "📊 Weekly Episode Progress Review", msg.Sections[0].Text)
	assert.Contains(t, msg.Sections[1].Text, "10月19日 〜 10月25日")
	assert.Contains(t, msg.Sections[4].Text, "• PL-003 - 京都ロケ (3日遅れ)")
	assert.Contains(t, msg.Sections[5].Text, "• PL-001 - スタジオ収録 (あと0日)")
	assert.True(t, strings.HasSuffix(msg.Sections[6].Text, "\n今週は順調です。"))
}

func TestFormatMessageOnlyHistogramOmittedWhenEmpty(t *testing.T) {
	review := baseReview()
	review.Schedule.OverdueEpisodes = []models.OverdueItem{{Episode: models.Episode{EpisodeID: "X"}, DaysOverdue: 1}}

	msg, err := FormatMessage(review)
	require.NoError(t, err)
	assert.Len(t, msg.Payload().Blocks, 4)
	assert.NotContains(t, sectionKinds(msg), slack.SectionStatusHistogram)
	assert.Contains(t, sectionKinds(msg), slack.SectionOverdueAlert)
}

func TestFormatMessageSummaryCounts(t *testing.T) {
	review := baseReview()
	review.Stats = models.WeeklyStats{NewEpisodes: 2, CompletedEpisodes: 1, InProgressEpisodes: 7}

	msg, err := FormatMessage(review)
	require.NoError(t, err)

	summary := msg.Sections[2].Text
	assert.Contains(t, summary, "新規エピソード: 2件")
	assert.Contains(t, summary, "完了エピソード: 1件")
	assert.Contains(t, summary, "進行中エピソード: 7件")
}

func TestFormatMessageHistogramOrderAndLimit(t *testing.T) {
	review := baseReview()
	review.Progress.ByStatus = map[string]int{
		"編集中": 5, "試写1": 5, "MA中": 1, "修正1": 2, "初稿完成": 3,
		"素材準備": 1, "素材確定": 1, "ロケ日調整中": 1, "収録準備中": 1, "未設定": 4,
	}

	msg, err := FormatMessage(review)
	require.NoError(t, err)

	lines := strings.Split(msg.Sections[3].Text, "\n")[1:]
	require.Len(t, lines, 8)
	assert.Equal(t, "• 編集中: 5件", lines[0])
	assert.Equal(t, "• 試写1: 5件", lines[1])
	assert.Equal(t, "• 未設定: 4件", lines[2])
	assert.Equal(t, "• 初稿完成: 3件", lines[3])
	assert.Equal(t, "• 修正1: 2件", lines[4])
	// ties at one are broken by label
	assert.Equal(t, "• MA中: 1件", lines[5])
	assert.Equal(t, "• ロケ日調整中: 1件", lines[6])
	assert.Equal(t, "• 収録準備中: 1件", lines[7])
}

func TestFormatMessageTruncatesLists(t *testing.T) {
	review := baseReview()
	for i := 0; i < 7; i++ {
		review.Schedule.OverdueEpisodes = append(review.Schedule.OverdueEpisodes,
			models.OverdueItem{Episode: models.Episode{EpisodeID: fmt.Sprintf("OD-%d", i)}, DaysOverdue: 10 - i})
		review.Schedule.UpcomingDeadlines = append(review.Schedule.UpcomingDeadlines,
			models.DeadlineItem{Episode: models.Episode{EpisodeID: fmt.Sprintf("UP-%d", i)}, DaysUntil: i})
	}

	msg, err := FormatMessage(review)
	require.NoError(t, err)

	overdue := msg.Sections[3].Text
	upcoming := msg.Sections[4].Text
	assert.Equal(t, 5, strings.Count(overdue, "\n• "))
	assert.Equal(t, 5, strings.Count(upcoming, "\n• "))
	assert.Contains(t, overdue, "OD-4")
	assert.NotContains(t, overdue, "OD-5")
	assert.NotContains(t, upcoming, "UP-6")
}

func TestFormatMessageDateRangeAcrossMonths(t *testing.T) {
	review := baseReview()
	review.WeekStart = time.Date(2026, 12, 28, 0, 0, 0, 0, tokyo)
	review.WeekEnd = review.WeekStart.AddDate(0, 0, 6)

	msg, err := FormatMessage(review)
	require.NoError(t, err)
	assert.Contains(t, msg.Sections[1].Text, "12月28日 〜 1月3日")
}
