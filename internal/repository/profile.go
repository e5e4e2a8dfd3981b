package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type LeadProfileRepository interface {
	FindByConversation(ctx context.Context, conversationID string) (*model.LeadProfile, error)
	// Replace overwrites the whole profile row. The extraction step always
	// produces a complete object, so there is no field-level merge.
	Replace(ctx context.Context, profile *model.LeadProfile) (*model.LeadProfile, error)
	// WithTx returns a copy of the repository bound to the transaction
	WithTx(tx *sqlx.Tx) LeadProfileRepository
}

type leadProfileRepo struct {
	db sqlxDB
}

func NewLeadProfileRepository(db *sqlx.DB) LeadProfileRepository {
	return &leadProfileRepo{db: db}
}

func (r *leadProfileRepo) WithTx(tx *sqlx.Tx) LeadProfileRepository {
	return &leadProfileRepo{db: tx}
}

func (r *leadProfileRepo) FindByConversation(ctx context.Context, conversationID string) (*model.LeadProfile, error) {
	var profile model.LeadProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM lead_profiles WHERE conversation_id = $1
	`, conversationID)
	return HandleNotFound(&profile, err)
}

func (r *leadProfileRepo) Replace(ctx context.Context, profile *model.LeadProfile) (*model.LeadProfile, error) {
	var saved model.LeadProfile
	err := r.db.GetContext(ctx, &saved, `
		INSERT INTO lead_profiles
			(conversation_id, name, region, property_type, bedrooms, budget_range,
			 payment_type, income_estimate, down_payment, purchase_timeline, missing_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (conversation_id) DO UPDATE SET
			name = EXCLUDED.name,
			region = EXCLUDED.region,
			property_type = EXCLUDED.property_type,
			bedrooms = EXCLUDED.bedrooms,
			budget_range = EXCLUDED.budget_range,
			payment_type = EXCLUDED.payment_type,
			income_estimate = EXCLUDED.income_estimate,
			down_payment = EXCLUDED.down_payment,
			purchase_timeline = EXCLUDED.purchase_timeline,
			missing_fields = EXCLUDED.missing_fields,
			updated_at = NOW()
		RETURNING *
	`, profile.ConversationID, profile.Name, profile.Region, profile.PropertyType,
		profile.Bedrooms, profile.BudgetRange, profile.PaymentType, profile.IncomeEstimate,
		profile.DownPayment, profile.PurchaseTimeline, profile.MissingFields)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
