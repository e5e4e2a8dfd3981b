package model

import (
	"time"

	"github.com/lib/pq"
)

// LeadProfile is the structured view of a conversation, one-to-one with it.
// Every extraction pass overwrites the whole row; fields are never merged
// piecemeal.
type LeadProfile struct {
	ConversationID   string         `db:"conversation_id" json:"conversationId"`
	Name             string         `db:"name" json:"name,omitempty"`
	Region           string         `db:"region" json:"region,omitempty"`
	PropertyType     string         `db:"property_type" json:"propertyType,omitempty"`
	Bedrooms         string         `db:"bedrooms" json:"bedrooms,omitempty"`
	BudgetRange      string         `db:"budget_range" json:"budgetRange,omitempty"`
	PaymentType      string         `db:"payment_type" json:"paymentType,omitempty"`
	IncomeEstimate   string         `db:"income_estimate" json:"incomeEstimate,omitempty"`
	DownPayment      string         `db:"down_payment" json:"downPayment,omitempty"`
	PurchaseTimeline string         `db:"purchase_timeline" json:"purchaseTimeline,omitempty"`
	MissingFields    pq.StringArray `db:"missing_fields" json:"missingFields"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}

// Complete reports whether the extraction has nothing left to ask for.
func (p *LeadProfile) Complete() bool {
	return len(p.MissingFields) == 0
}
