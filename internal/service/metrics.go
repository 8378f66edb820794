package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
)

const (
	summaryWindow      = 24 * time.Hour
	generateTemp       = 0.3
	summaryUnavailable = "无法生成 AI 摘要（缺少 API Key）。以下为过去24小时的占位摘要。"
	summaryEmpty       = "未检测到显著活动。"
	summaryFailed      = "生成摘要失败。"
	memoUnavailable    = "（无法生成摘要：服务器缺少 API Key）"
	memoEmpty          = "（暂无内容可摘要）"
	memoFailed         = "（生成摘要失败）"
)

const transcriptTimeLayout = "2006-01-02T15:04:05.000Z"

// HistogramBucket is one hour of activity
type HistogramBucket struct {
	Time  time.Time `json:"t"`
	Count int       `json:"count"`
}

// Histogram is the trailing-24h activity series
type Histogram struct {
	Series []HistogramBucket `json:"series"`
	Total  int               `json:"total"`
	Since  time.Time         `json:"since"`
	Until  time.Time         `json:"until"`
}

// MetricsService aggregates activity into hourly histograms and turns
// transcripts into AI-written memos and fleet summaries. All reads are scoped
// to the caller; the administrator sees the whole fleet.
type MetricsService struct {
	conversationRepo domain.ConversationRepository
	messageRepo      domain.MessageRepository
	memoRepo         domain.MemoRepository
	allowList        *domain.AllowList
	llmRouter        *llm.Router
	generateTimeout  time.Duration
}

// NewMetricsService creates a new metrics service
func NewMetricsService(
	conversationRepo domain.ConversationRepository,
	messageRepo domain.MessageRepository,
	memoRepo domain.MemoRepository,
	allowList *domain.AllowList,
	llmRouter *llm.Router,
	generateTimeout time.Duration,
) *MetricsService {
	return &MetricsService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		memoRepo:         memoRepo,
		allowList:        allowList,
		llmRouter:        llmRouter,
		generateTimeout:  generateTimeout,
	}
}

func (s *MetricsService) scope(username string) string {
	if s.allowList.IsAdmin(username) {
		return ""
	}
	return username
}

// HourlyHistogram returns exactly 24 hour-aligned UTC buckets ending at the
// top of the current hour, counting the caller's messages.
func (s *MetricsService) HourlyHistogram(ctx context.Context, username string) (*Histogram, error) {
	now := time.Now().UTC()
	since := now.Add(-summaryWindow)
	endHour := now.Truncate(time.Hour)
	start := endHour.Add(-23 * time.Hour)

	messages, err := s.messageRepo.ListSinceForOwner(ctx, since, s.scope(username))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	series := make([]HistogramBucket, 24)
	for i := range series {
		series[i].Time = start.Add(time.Duration(i) * time.Hour)
	}
	for _, m := range messages {
		aligned := m.CreatedAt.UTC().Truncate(time.Hour)
		idx := int(aligned.Sub(start) / time.Hour)
		if idx >= 0 && idx < len(series) {
			series[idx].Count++
		}
	}

	return &Histogram{
		Series: series,
		Total:  len(messages),
		Since:  since,
		Until:  now,
	}, nil
}

// FleetSummary asks the model for an executive summary of the trailing 24
// hours of activity visible to the caller. Failures degrade to fixed
// placeholder text rather than errors.
func (s *MetricsService) FleetSummary(ctx context.Context, username string) (string, error) {
	owner := s.scope(username)
	since := time.Now().UTC().Add(-summaryWindow)

	conversations, err := s.conversationRepo.List(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}
	titles := make(map[string]domain.Conversation, len(conversations))
	for _, c := range conversations {
		titles[c.ID] = c
	}

	recent, err := s.messageRepo.ListSinceForOwner(ctx, since, owner)
	if err != nil {
		return "", fmt.Errorf("failed to list recent messages: %w", err)
	}

	// Group by conversation in order of first appearance.
	var order []string
	grouped := make(map[string][]domain.Message)
	for _, m := range recent {
		if _, seen := grouped[m.ConversationID]; !seen {
			order = append(order, m.ConversationID)
		}
		grouped[m.ConversationID] = append(grouped[m.ConversationID], m)
	}

	var transcripts []string
	for _, id := range order {
		conversation, ok := titles[id]
		if !ok {
			conversation = domain.Conversation{ID: id, Title: "未命名"}
		}
		if t := formatTranscript(conversation, grouped[id]); strings.TrimSpace(t) != "" {
			transcripts = append(transcripts, t)
		}
	}
	joined := strings.Join(transcripts, "\n\n---\n\n")
	if joined == "" {
		joined = "(no conversations in the last day)"
	}

	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return summaryUnavailable, nil
		}
		return "", err
	}

	prompt := strings.Join([]string{
		"You are an executive assistant aggregating company-wide assistant usage for the last 24 hours.",
		"Write a concise, modern summary in clear bullet points and short paragraphs.",
		"Focus on intents, themes, notable tasks completed, decisions, risks, and follow-ups.",
		"Keep it actionable. Prefer section headings like: Overview, Top Topics, Notable Wins, Risks / Open Questions, Follow-ups.",
		"Output in succinct Chinese.",
		"Conversation snapshots (chronological):",
		"<<<BEGIN>>>",
		joined,
		"<<<END>>>",
	}, "\n")

	callCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	temp := generateTemp
	out, err := provider.Generate(callCtx, prompt, &temp)
	if err != nil {
		log.Error().Err(err).Msg("fleet summary generation failed")
		return summaryFailed, nil
	}
	if text := strings.TrimSpace(out); text != "" {
		return text, nil
	}
	return summaryEmpty, nil
}

// ConversationMemo returns the conversation's memo, generating one when absent
// or when regenerate is set. Placeholders for missing credentials, empty
// transcripts and generation failures are persisted so retries stay cheap.
func (s *MetricsService) ConversationMemo(ctx context.Context, username, conversationID string, regenerate bool) (*domain.Memo, error) {
	conversation, err := s.conversationRepo.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, domain.ErrNotFound
	}
	if !s.allowList.CanAccess(username, conversation.Owner) {
		return nil, domain.ErrForbidden
	}

	if !regenerate {
		existing, err := s.memoRepo.Get(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get memo: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	var lines []string
	for _, m := range messages {
		lines = append(lines, speakerLabel(m.Role)+": "+strings.TrimSpace(m.Content))
	}
	transcript := strings.Join(lines, "\n")
	if transcript == "" {
		transcript = "（无对话记录）"
	}

	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return s.memoRepo.Upsert(ctx, conversationID, memoUnavailable)
		}
		return nil, err
	}

	prompt := strings.Join([]string{
		"请基于以下对话记录，用中文写一份非常简洁的备忘录。",
		"概括员工想要什么、与助手的对话中发生了什么、达成了什么结论。",
		"",
		"对话记录：",
		"<<<BEGIN_CONVERSATION>>>",
		transcript,
		"<<<END_CONVERSATION>>>",
	}, "\n")

	callCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	temp := generateTemp
	out, err := provider.Generate(callCtx, prompt, &temp)
	if err != nil {
		log.Error().Err(err).Str("conversation", conversationID).Msg("memo generation failed")
		return s.memoRepo.Upsert(ctx, conversationID, memoFailed)
	}
	content := strings.TrimSpace(out)
	if content == "" {
		content = memoEmpty
	}
	return s.memoRepo.Upsert(ctx, conversationID, content)
}

func formatTranscript(conversation domain.Conversation, messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, speakerLabel(m.Role)+": "+strings.TrimSpace(m.Content))
	}
	created := ""
	if !conversation.CreatedAt.IsZero() {
		created = conversation.CreatedAt.UTC().Format(transcriptTimeLayout)
	}
	header := fmt.Sprintf("会话: %s｜创建时间: %s", conversation.Title, created)
	return header + "\n" + strings.Join(lines, "\n")
}

func speakerLabel(role domain.Role) string {
	switch role {
	case domain.RoleModel:
		return "助理"
	case domain.RoleSystem:
		return "系统"
	default:
		return "用户"
	}
}
