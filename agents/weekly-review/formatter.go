package weeklyreview

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/slack"
)

const (
	reviewTitle = "Weekly Episode Progress Review"

	maxStatusRows   = 8
	maxOverdueRows  = 5
	maxUpcomingRows = 5
)

var errNilReview = errors.New("weekly review is nil")

// FormatMessage maps the review onto an ordered chat message. Sections with
// nothing to report are left out entirely.
func FormatMessage(review *models.WeeklyReview) (slack.Message, error) {
	if review == nil {
		return slack.Message{}, errNilReview
	}

	dateRange := fmt.Sprintf("%s 〜 %s", japaneseDate(review.WeekStart), japaneseDate(review.WeekEnd))

	candidates := []*slack.Section{
		{Kind: slack.SectionHeader, Text: "📊 " + reviewTitle},
		{Kind: slack.SectionDateRange, Text: "📅 *対象期間*: " + dateRange},
		summarySection(review.Stats),
		statusSection(review.Progress.ByStatus),
		overdueSection(review.Schedule.OverdueEpisodes),
		upcomingSection(review.Schedule.UpcomingDeadlines),
		commentarySection(review.Commentary),
	}

	msg := slack.Message{Text: fmt.Sprintf("%s: %s", reviewTitle, dateRange)}
	for _, s := range candidates {
		if s != nil {
			msg.Sections = append(msg.Sections, *s)
		}
	}
	return msg, nil
}

func japaneseDate(t time.Time) string {
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

func summarySection(stats models.WeeklyStats) *slack.Section {
	text := fmt.Sprintf("*📈 今週の活動*\n• 新規エピソード: %d件\n• 完了エピソード: %d件\n• 進行中エピソード: %d件",
		stats.NewEpisodes, stats.CompletedEpisodes, stats.InProgressEpisodes)
	return &slack.Section{Kind: slack.SectionSummary, Text: text}
}

func statusSection(byStatus map[string]int) *slack.Section {
	if len(byStatus) == 0 {
		return nil
	}

	type row struct {
		label string
		count int
	}
	rows := make([]row, 0, len(byStatus))
	for label, count := range byStatus {
		rows = append(rows, row{label, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].label < rows[j].label
	})
	if len(rows) > maxStatusRows {
		rows = rows[:maxStatusRows]
	}

	var b strings.Builder
	b.WriteString("*📋 ステータス別エピソード数*")
	for _, r := range rows {
		fmt.Fprintf(&b, "\n• %s: %d件", r.label, r.count)
	}
	return &slack.Section{Kind: slack.SectionStatusHistogram, Text: b.String()}
}

func overdueSection(items []models.OverdueItem) *slack.Section {
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxOverdueRows {
		items = items[:maxOverdueRows]
	}

	var b strings.Builder
	b.WriteString("*⚠️ 期限超過エピソード*")
	for _, item := range items {
		fmt.Fprintf(&b, "\n• %s - %s (%d日遅れ)", item.Episode.EpisodeID, item.Episode.Title, item.DaysOverdue)
	}
	return &slack.Section{Kind: slack.SectionOverdueAlert, Text: b.String()}
}

func upcomingSection(items []models.DeadlineItem) *slack.Section {
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxUpcomingRows {
		items = items[:maxUpcomingRows]
	}

	var b strings.Builder
	b.WriteString("*⏰ 今後の締切*")
	for _, item := range items {
		fmt.Fprintf(&b, "\n• %s - %s (あと%d日)", item.Episode.EpisodeID, item.Episode.Title, item.DaysUntil)
	}
	return &slack.Section{Kind: slack.SectionUpcomingDeadlines, Text: b.String()}
}

func commentarySection(comment string) *slack.Section {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}
	return &slack.Section{Kind: slack.SectionCommentary, Text: "*💬 今週のひとこと*\n" + comment}
}
