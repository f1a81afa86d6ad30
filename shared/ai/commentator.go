package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/config"

	"google.golang.org/genai"
)

// maxCommentRunes bounds what goes into the chat message.
const maxCommentRunes = 400

// Generator is the slice of the Gemini client the commentator needs.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Commentator writes a short producer-facing note about the week's numbers.
type Commentator struct {
	models Generator
	model  string
}

func NewCommentator(ctx context.Context, cfg *config.AIConfig) (*Commentator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Commentator{
		models: client.Models,
		model:  cfg.Model,
	}, nil
}

// NewCommentatorWithGenerator is used by tests and alternative backends.
func NewCommentatorWithGenerator(g Generator, model string) *Commentator {
	return &Commentator{models: g, model: model}
}

// Comment returns the generated note, trimmed to a chat-friendly length.
func (c *Commentator) Comment(ctx context.Context, review *models.WeeklyReview) (string, error) {
	if review == nil {
		return "", fmt.Errorf("review cannot be nil")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(review), genai.RoleUser),
	}

	result, err := c.models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate commentary: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("empty commentary response")
	}

	return truncateRunes(text, maxCommentRunes), nil
}

func buildPrompt(review *models.WeeklyReview) string {
	var b strings.Builder
	b.WriteString("あなたはテレビ番組制作チームのアシスタントプロデューサーです。\n")
	b.WriteString("以下の今週の進捗データを読み、チーム向けに2〜3文の短いコメントを日本語で書いてください。")
	b.WriteString("遅れている案件があれば優先順位を一言添えてください。Markdownの見出しは使わないでください。\n\n")

	fmt.Fprintf(&b, "期間: %s 〜 %s\n", review.WeekStart.Format("2006-01-02"), review.WeekEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "エピソード総数: %d\n", review.Progress.TotalEpisodes)
	fmt.Fprintf(&b, "今週の新規: %d / 今週の完了: %d / 進行中: %d\n",
		review.Stats.NewEpisodes, review.Stats.CompletedEpisodes, review.Stats.InProgressEpisodes)
	fmt.Fprintf(&b, "今週の予定タスク数: %d\n", len(review.Schedule.Tasks))

	labels := make([]string, 0, len(review.Progress.ByStatus))
	for label := range review.Progress.ByStatus {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "ステータス %s: %d件\n", label, review.Progress.ByStatus[label])
	}

	for _, item := range review.Schedule.OverdueEpisodes {
		fmt.Fprintf(&b, "期限超過: %s %s (%d日遅れ, %s)\n",
			item.Episode.EpisodeID, item.Episode.Title, item.DaysOverdue, item.Episode.Status)
	}
	for _, item := range review.Schedule.UpcomingDeadlines {
		fmt.Fprintf(&b, "締切間近: %s %s (あと%d日, %s)\n",
			item.Episode.EpisodeID, item.Episode.Title, item.DaysUntil, item.Episode.Status)
	}

	return b.String()
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
