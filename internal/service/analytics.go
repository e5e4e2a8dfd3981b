package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imobiai/leadqual-server-go/internal/genai"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
)

// AnalyticsSummary is the computed dashboard view. Rates are percentages
// rounded down to whole numbers.
type AnalyticsSummary struct {
	TotalConversations int            `json:"totalConversations"`
	NewLeads           int            `json:"newLeads"`
	QualifiedLeads     int            `json:"qualifiedLeads"`
	QualificationRate  int            `json:"qualificationRate"`
	AIMessages         int            `json:"aiMessages"`
	AgentMessages      int            `json:"agentMessages"`
	AIHandoffRate      int            `json:"aiHandoffRate"`
	ByStatus           map[string]int `json:"byStatus"`
	ByTemperature      map[string]int `json:"byTemperature"`
	Daily              []DailyPoint   `json:"daily"`
}

// DailyPoint is one day of the trailing week, oldest first.
type DailyPoint struct {
	Date      string `json:"date"`
	Leads     int    `json:"leads"`
	Qualified int    `json:"qualified"`
}

type AnalyticsService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	generator genai.Generator

	now func() time.Time
}

func NewAnalyticsService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	generator genai.Generator,
) *AnalyticsService {
	return &AnalyticsService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		generator: generator,
		now:       time.Now,
	}
}

func (s *AnalyticsService) Summary(ctx context.Context) (*AnalyticsSummary, error) {
	total, err := s.convRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	byStatus := make(map[string]int, len(model.ValidLeadStatuses()))
	for _, status := range model.ValidLeadStatuses() {
		n, err := s.convRepo.CountByStatus(ctx, model.LeadStatus(status))
		if err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		byStatus[status] = n
	}

	byTemperature := make(map[string]int, 3)
	for _, temp := range []model.LeadTemperature{model.TemperatureFrio, model.TemperatureMorno, model.TemperatureQuente} {
		n, err := s.convRepo.CountByTemperature(ctx, temp)
		if err != nil {
			return nil, fmt.Errorf("count by temperature: %w", err)
		}
		byTemperature[string(temp)] = n
	}

	aiCount, err := s.msgRepo.CountBySender(ctx, model.SenderAI)
	if err != nil {
		return nil, fmt.Errorf("count ai messages: %w", err)
	}
	agentCount, err := s.msgRepo.CountBySender(ctx, model.SenderAgent)
	if err != nil {
		return nil, fmt.Errorf("count agent messages: %w", err)
	}

	daily, err := s.dailySeries(ctx)
	if err != nil {
		return nil, err
	}

	qualified := byStatus[string(model.LeadStatusQualificado)]
	summary := &AnalyticsSummary{
		TotalConversations: total,
		NewLeads:           byStatus[string(model.LeadStatusNovo)],
		QualifiedLeads:     qualified,
		QualificationRate:  percentage(qualified, total),
		AIMessages:         aiCount,
		AgentMessages:      agentCount,
		AIHandoffRate:      percentage(aiCount, aiCount+agentCount),
		ByStatus:           byStatus,
		ByTemperature:      byTemperature,
		Daily:              daily,
	}
	return summary, nil
}

func (s *AnalyticsService) dailySeries(ctx context.Context) ([]DailyPoint, error) {
	now := s.now()
	points := make([]DailyPoint, 0, 7)

	// cum[i] holds the count since midnight i days ago; the per-day value
	// for day i is the difference against the next-younger cumulative count.
	cumLeads := make([]int, 7)
	cumQualified := make([]int, 7)
	for i := 0; i < 7; i++ {
		since := midnight(now.AddDate(0, 0, -i))
		leads, err := s.convRepo.CountCreatedSince(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("count created since: %w", err)
		}
		qualified, err := s.convRepo.CountByStatusSince(ctx, model.LeadStatusQualificado, since)
		if err != nil {
			return nil, fmt.Errorf("count qualified since: %w", err)
		}
		cumLeads[i] = leads
		cumQualified[i] = qualified
	}

	for i := 6; i >= 0; i-- {
		day := midnight(now.AddDate(0, 0, -i))
		leads := cumLeads[i]
		qualified := cumQualified[i]
		if i > 0 {
			leads -= cumLeads[i-1]
			qualified -= cumQualified[i-1]
		}
		points = append(points, DailyPoint{
			Date:      day.Format("2006-01-02"),
			Leads:     leads,
			Qualified: qualified,
		})
	}
	return points, nil
}

// Insights feeds the computed metrics to the analysis model and returns its
// structured observations.
func (s *AnalyticsService) Insights(ctx context.Context) (*genai.InsightsResult, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.GenerateInsights(ctx, formatMetrics(summary))
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}
	return result, nil
}

func formatMetrics(s *AnalyticsSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total de conversas: %d. ", s.TotalConversations)
	fmt.Fprintf(&b, "Novos leads: %d. ", s.NewLeads)
	fmt.Fprintf(&b, "Leads qualificados: %d. ", s.QualifiedLeads)
	fmt.Fprintf(&b, "Taxa de qualificação: %d%%. ", s.QualificationRate)
	fmt.Fprintf(&b, "Taxa de handoff AI: %d%%. ", s.AIHandoffRate)
	fmt.Fprintf(&b, "Leads por temperatura: Frio %d, Morno %d, Quente %d.",
		s.ByTemperature[string(model.TemperatureFrio)],
		s.ByTemperature[string(model.TemperatureMorno)],
		s.ByTemperature[string(model.TemperatureQuente)])
	return b.String()
}

func percentage(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return part * 100 / whole
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
