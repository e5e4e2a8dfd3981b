package genai

import (
	"context"

	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
)

// Disabled is the Generator used when no API key is configured. Every call
// fails with a configuration error so callers log and leave state unchanged.
type Disabled struct{}

var _ Generator = Disabled{}

func (Disabled) GenerateReply(context.Context, []ChatTurn, string) (string, error) {
	return "", apperrors.MissingCredential("GEMINI_API_KEY")
}

func (Disabled) ExtractLead(context.Context, string) (*LeadExtraction, error) {
	return nil, apperrors.MissingCredential("GEMINI_API_KEY")
}

func (Disabled) GenerateInsights(context.Context, string) (*InsightsResult, error) {
	return nil, apperrors.MissingCredential("GEMINI_API_KEY")
}
