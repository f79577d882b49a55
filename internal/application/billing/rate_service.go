package billing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// RateService resolves effective hourly rates with the engine's recovery
// rule: on any resolver failure it substitutes the configured default rate
// and logs a warning. Billing views must always render, even when pricing
// data is incomplete, so resolver errors never propagate.
type RateService struct {
	resolver    billing.RateResolver
	defaultRate decimal.Decimal
	logger      *zap.Logger
}

// NewRateService creates a new rate service. The default rate comes from
// configuration, not a package constant, so tests can override it.
func NewRateService(resolver billing.RateResolver, defaultRate decimal.Decimal, logger *zap.Logger) *RateService {
	return &RateService{
		resolver:    resolver,
		defaultRate: defaultRate,
		logger:      logger,
	}
}

// DefaultRate returns the configured fallback rate
func (s *RateService) DefaultRate() decimal.Decimal {
	return s.defaultRate
}

// EffectiveRate resolves the hourly rate for the query, falling back to the
// default on any failure
func (s *RateService) EffectiveRate(ctx context.Context, query billing.RateQuery) decimal.Decimal {
	if s.resolver == nil {
		return s.defaultRate
	}

	rate, err := s.resolver.EffectiveRate(ctx, query)
	if err != nil {
		s.logger.Warn("rate resolution failed, using default rate",
			zap.String("user_id", query.UserID.String()),
			zap.String("project_id", query.ProjectID.String()),
			zap.String("default_rate", s.defaultRate.String()),
			zap.Error(err))
		return s.defaultRate
	}
	return rate
}
