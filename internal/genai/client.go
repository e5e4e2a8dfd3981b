// Package genai wraps the Gemini generation service behind the three
// capabilities this system consumes: chat reply generation, schema-constrained
// lead extraction, and analytics insight summarization.
package genai

import (
	"context"
	"encoding/json"
	"fmt"

	gogenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/imobiai/leadqual-server-go/internal/config"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
)

// ChatTurn is one entry of a role-tagged transcript. Role is "user" for
// client messages and "model" for everything else.
type ChatTurn struct {
	Role string
	Text string
}

type LeadExtraction struct {
	Name             string   `json:"name"`
	Region           string   `json:"region"`
	PropertyType     string   `json:"propertyType"`
	Bedrooms         string   `json:"bedrooms"`
	BudgetRange      string   `json:"budgetRange"`
	PaymentType      string   `json:"paymentType"`
	IncomeEstimate   string   `json:"incomeEstimate"`
	DownPayment      string   `json:"downPayment"`
	PurchaseTimeline string   `json:"purchaseTimeline"`
	MissingFields    []string `json:"missingFields"`
}

type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type InsightsResult struct {
	Insights        []Insight `json:"insights"`
	Recommendations []string  `json:"recommendations"`
}

// Generator is the consumed contract of the generation service. All three
// operations are request/response, no streaming.
type Generator interface {
	GenerateReply(ctx context.Context, history []ChatTurn, systemInstruction string) (string, error)
	ExtractLead(ctx context.Context, transcript string) (*LeadExtraction, error)
	GenerateInsights(ctx context.Context, metricsText string) (*InsightsResult, error)
}

type Client struct {
	client        *gogenai.Client
	chatModel     string
	analysisModel string
}

var _ Generator = (*Client)(nil)

// NewClient builds a Gemini-backed Generator. A missing API key is a
// configuration error raised here, not retried downstream.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, apperrors.MissingCredential("GEMINI_API_KEY")
	}

	client, err := gogenai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("initialize gemini client: %w", err)
	}

	return &Client{
		client:        client,
		chatModel:     cfg.GeminiChatModel,
		analysisModel: cfg.GeminiAnalysisModel,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GenerateReply(ctx context.Context, history []ChatTurn, systemInstruction string) (string, error) {
	if len(history) == 0 {
		return "", apperrors.InvalidInput("history", "empty")
	}

	model := c.client.GenerativeModel(c.chatModel)
	model.SystemInstruction = &gogenai.Content{
		Parts: []gogenai.Part{gogenai.Text(systemInstruction)},
	}

	chat := model.StartChat()
	for _, turn := range history[:len(history)-1] {
		chat.History = append(chat.History, &gogenai.Content{
			Role:  turn.Role,
			Parts: []gogenai.Part{gogenai.Text(turn.Text)},
		})
	}

	resp, err := chat.SendMessage(ctx, gogenai.Text(history[len(history)-1].Text))
	if err != nil {
		return "", apperrors.External("gemini", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) ExtractLead(ctx context.Context, transcript string) (*LeadExtraction, error) {
	model := c.client.GenerativeModel(c.chatModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = leadSchema()

	prompt := fmt.Sprintf(
		"Extract lead information from the following conversation:\n\n%s\n\nReturn the data in the specified JSON format.",
		transcript,
	)

	resp, err := model.GenerateContent(ctx, gogenai.Text(prompt))
	if err != nil {
		return nil, apperrors.External("gemini", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var extraction LeadExtraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, apperrors.External("gemini", fmt.Errorf("unmarshal extraction: %w", err))
	}
	return &extraction, nil
}

func (c *Client) GenerateInsights(ctx context.Context, metricsText string) (*InsightsResult, error) {
	model := c.client.GenerativeModel(c.analysisModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = insightsSchema()

	prompt := fmt.Sprintf(
		"Analyze these real estate metrics and provide 3 key behavioral insights and 3 agent recommendations:\n\n%s",
		metricsText,
	)

	resp, err := model.GenerateContent(ctx, gogenai.Text(prompt))
	if err != nil {
		return nil, apperrors.External("gemini", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var result InsightsResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, apperrors.External("gemini", fmt.Errorf("unmarshal insights: %w", err))
	}
	return &result, nil
}

func responseText(resp *gogenai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperrors.External("gemini", fmt.Errorf("empty response"))
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(gogenai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return "", apperrors.External("gemini", fmt.Errorf("no text parts in response"))
	}
	return text, nil
}

func leadSchema() *gogenai.Schema {
	str := &gogenai.Schema{Type: gogenai.TypeString}
	return &gogenai.Schema{
		Type: gogenai.TypeObject,
		Properties: map[string]*gogenai.Schema{
			"name":             str,
			"region":           str,
			"propertyType":     str,
			"bedrooms":         str,
			"budgetRange":      str,
			"paymentType":      str,
			"incomeEstimate":   str,
			"downPayment":      str,
			"purchaseTimeline": str,
			"missingFields": {
				Type:  gogenai.TypeArray,
				Items: &gogenai.Schema{Type: gogenai.TypeString},
			},
		},
	}
}

func insightsSchema() *gogenai.Schema {
	return &gogenai.Schema{
		Type: gogenai.TypeObject,
		Properties: map[string]*gogenai.Schema{
			"insights": {
				Type: gogenai.TypeArray,
				Items: &gogenai.Schema{
					Type: gogenai.TypeObject,
					Properties: map[string]*gogenai.Schema{
						"title":       {Type: gogenai.TypeString},
						"description": {Type: gogenai.TypeString},
					},
				},
			},
			"recommendations": {
				Type:  gogenai.TypeArray,
				Items: &gogenai.Schema{Type: gogenai.TypeString},
			},
		},
	}
}
