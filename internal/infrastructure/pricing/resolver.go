// Package pricing resolves effective hourly rates from stored pricing
// rules.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// RuleRateResolver picks the most specific pricing rule effective on the
// query date. Candidate filtering happens in the repository query; the
// specificity ranking happens here. Ties on specificity fall to the most
// recently effective rule.
type RuleRateResolver struct {
	rateRepo billing.RateRepository
	logger   *zap.Logger
}

var _ billing.RateResolver = (*RuleRateResolver)(nil)

// NewRuleRateResolver creates a new rule-based rate resolver
func NewRuleRateResolver(rateRepo billing.RateRepository, logger *zap.Logger) *RuleRateResolver {
	return &RuleRateResolver{
		rateRepo: rateRepo,
		logger:   logger,
	}
}

// EffectiveRate resolves the hourly rate for the query, or ErrNoRateRule
// when no stored rule matches
func (r *RuleRateResolver) EffectiveRate(ctx context.Context, query billing.RateQuery) (decimal.Decimal, error) {
	candidates, err := r.rateRepo.FindCandidates(ctx, query)
	if err != nil {
		return decimal.Zero, err
	}

	var best *billing.Rate
	for _, candidate := range candidates {
		if !candidate.EffectiveOn(query.Date) {
			continue
		}
		if best == nil {
			best = candidate
			continue
		}
		switch {
		case candidate.Specificity() > best.Specificity():
			best = candidate
		case candidate.Specificity() == best.Specificity() &&
			candidate.EffectiveFrom.After(best.EffectiveFrom):
			best = candidate
		}
	}

	if best == nil {
		return decimal.Zero, billing.ErrNoRateRule
	}

	r.logger.Debug("resolved billing rate",
		zap.String("tenant_id", query.TenantID.String()),
		zap.String("user_id", query.UserID.String()),
		zap.String("project_id", query.ProjectID.String()),
		zap.String("rate", best.HourlyRate.String()),
		zap.Int("specificity", best.Specificity()))

	return best.HourlyRate, nil
}
