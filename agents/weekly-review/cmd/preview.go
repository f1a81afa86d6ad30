package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/slack"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Aggregate this week's review and print it without sending",
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()

			review, msg, err := agent.Service().Preview(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(msg.Payload())
			}
			writePreview(out, review, msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the Slack payload as JSON")
	return cmd
}

func writePreview(w io.Writer, review *models.WeeklyReview, msg slack.Message) {
	fmt.Fprintln(w, msg.Text)
	fmt.Fprintln(w)

	stats := review.Summarize()
	fmt.Fprintln(w, renderTable(
		[]string{"Metric", "Count"},
		[][]string{
			{"Total episodes", strconv.Itoa(stats.TotalEpisodes)},
			{"Tasks this week", strconv.Itoa(stats.TasksCount)},
			{"New this week", strconv.Itoa(stats.NewEpisodes)},
			{"Completed this week", strconv.Itoa(stats.CompletedEpisodes)},
			{"In progress", strconv.Itoa(review.Stats.InProgressEpisodes)},
			{"Overdue", strconv.Itoa(stats.OverdueCount)},
			{"Upcoming deadlines", strconv.Itoa(stats.UpcomingDeadlines)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(review.Progress.ByStatus) > 0 {
		labels := make([]string, 0, len(review.Progress.ByStatus))
		for label := range review.Progress.ByStatus {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		rows := make([][]string, 0, len(labels))
		for _, label := range labels {
			rows = append(rows, []string{label, strconv.Itoa(review.Progress.ByStatus[label])})
		}
		fmt.Fprintln(w, renderTable([]string{"Status", "Episodes"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if len(review.Schedule.Tasks) > 0 {
		rows := make([][]string, 0, len(review.Schedule.Tasks))
		for _, entry := range review.Schedule.Tasks {
			rows = append(rows, []string{entry.Date.Format("01/02 Mon"), entry.Task.TaskType, entry.Task.Source})
		}
		fmt.Fprintln(w, renderTable([]string{"Date", "Task", "Source"}, rows, nil))
	}

	if len(review.Schedule.OverdueEpisodes) > 0 || len(review.Schedule.UpcomingDeadlines) > 0 {
		var rows [][]string
		for _, item := range review.Schedule.OverdueEpisodes {
			rows = append(rows, []string{item.Episode.EpisodeID, item.Episode.Title, item.Episode.Status, strconv.Itoa(-item.DaysOverdue)})
		}
		for _, item := range review.Schedule.UpcomingDeadlines {
			rows = append(rows, []string{item.Episode.EpisodeID, item.Episode.Title, item.Episode.Status, strconv.Itoa(item.DaysUntil)})
		}
		fmt.Fprintln(w, renderTable([]string{"Episode", "Title", "Status", "Days"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if review.Commentary != "" {
		fmt.Fprintln(w, review.Commentary)
	}
}
