package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imobiai/leadqual-server-go/internal/genai"
	"github.com/imobiai/leadqual-server-go/internal/model"
)

func TestAnalyticsSummary(t *testing.T) {
	ctx := context.Background()

	convRepo := new(mockConversationRepo)
	msgRepo := new(mockMessageRepo)
	svc := NewAnalyticsService(convRepo, msgRepo, new(mockGenerator))
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC) }

	convRepo.On("Count", mock.Anything).Return(20, nil)
	convRepo.On("CountByStatus", mock.Anything, model.LeadStatusNovo).Return(8, nil)
	convRepo.On("CountByStatus", mock.Anything, model.LeadStatusQualificando).Return(5, nil)
	convRepo.On("CountByStatus", mock.Anything, model.LeadStatusQualificado).Return(4, nil)
	convRepo.On("CountByStatus", mock.Anything, model.LeadStatusAtendimento).Return(2, nil)
	convRepo.On("CountByStatus", mock.Anything, model.LeadStatusFinalizado).Return(1, nil)
	convRepo.On("CountByTemperature", mock.Anything, mock.Anything).Return(5, nil)
	msgRepo.On("CountBySender", mock.Anything, model.SenderAI).Return(30, nil)
	msgRepo.On("CountBySender", mock.Anything, model.SenderAgent).Return(10, nil)
	convRepo.On("CountCreatedSince", mock.Anything, mock.Anything).Return(3, nil)
	convRepo.On("CountByStatusSince", mock.Anything, model.LeadStatusQualificado, mock.Anything).Return(1, nil)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 20, summary.TotalConversations)
	assert.Equal(t, 8, summary.NewLeads)
	assert.Equal(t, 4, summary.QualifiedLeads)
	assert.Equal(t, 20, summary.QualificationRate)
	assert.Equal(t, 75, summary.AIHandoffRate)
	assert.Len(t, summary.Daily, 7)
	assert.Equal(t, "2026-08-24", summary.Daily[0].Date)
	assert.Equal(t, "2026-08-30", summary.Daily[6].Date)
}

func TestDailySeriesBucketsByCreationDay(t *testing.T) {
	ctx := context.Background()

	convRepo := new(mockConversationRepo)
	svc := NewAnalyticsService(convRepo, new(mockMessageRepo), new(mockGenerator))
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC) }

	// Two leads created today, one yesterday, none earlier in the window.
	// The qualified lead was created today. Counts are cumulative per
	// midnight, the way the repository reports them.
	for i := 0; i < 7; i++ {
		since := time.Date(2026, 8, 30-i, 0, 0, 0, 0, time.UTC)
		leads := 3
		if i == 0 {
			leads = 2
		}
		convRepo.On("CountCreatedSince", mock.Anything, since).Return(leads, nil)
		convRepo.On("CountByStatusSince", mock.Anything, model.LeadStatusQualificado, since).Return(1, nil)
	}

	daily, err := svc.dailySeries(ctx)
	require.NoError(t, err)
	require.Len(t, daily, 7)

	assert.Equal(t, DailyPoint{Date: "2026-08-30", Leads: 2, Qualified: 1}, daily[6])
	assert.Equal(t, DailyPoint{Date: "2026-08-29", Leads: 1, Qualified: 0}, daily[5])
	for i := 0; i < 5; i++ {
		assert.Zero(t, daily[i].Leads)
		assert.Zero(t, daily[i].Qualified)
	}
}

func TestAnalyticsInsights(t *testing.T) {
	ctx := context.Background()

	convRepo := new(mockConversationRepo)
	msgRepo := new(mockMessageRepo)
	gen := new(mockGenerator)
	svc := NewAnalyticsService(convRepo, msgRepo, gen)

	convRepo.On("Count", mock.Anything).Return(10, nil)
	convRepo.On("CountByStatus", mock.Anything, mock.Anything).Return(2, nil)
	convRepo.On("CountByTemperature", mock.Anything, mock.Anything).Return(3, nil)
	msgRepo.On("CountBySender", mock.Anything, mock.Anything).Return(5, nil)
	convRepo.On("CountCreatedSince", mock.Anything, mock.Anything).Return(1, nil)
	convRepo.On("CountByStatusSince", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	gen.On("GenerateInsights", mock.Anything, mock.MatchedBy(func(text string) bool {
		return len(text) > 0
	})).Return(&genai.InsightsResult{
		Insights: []genai.Insight{
			{Title: "Leads mornos dominam", Description: "A maior parte dos leads chega sem urgência definida."},
		},
		Recommendations: []string{"Priorize leads quentes no primeiro contato."},
	}, nil)

	result, err := svc.Insights(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Insights, 1)
	assert.Len(t, result.Recommendations, 1)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, percentage(5, 0))
	assert.Equal(t, 50, percentage(1, 2))
	assert.Equal(t, 33, percentage(1, 3))
}
