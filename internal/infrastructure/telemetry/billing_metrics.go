// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics provides business metrics for the billing engine.
// It tracks adjustment writes, target allocations, and view rendering.
type BillingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	adjustmentTotal      *Counter
	adjustmentHoursTotal *Counter
	allocationTotal      *Counter
	viewTotal            *Counter

	// Gauge metrics (point-in-time values)
	activeAdjustments *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	adjustmentProvider AdjustmentMetricsProvider
}

// AdjustmentMetricsProvider provides adjustment data for periodic metrics
// collection. The interface keeps the telemetry layer off the billing
// domain's repositories.
type AdjustmentMetricsProvider interface {
	// GetActiveAdjustmentCount returns the number of stored adjustments per
	// project for a tenant
	GetActiveAdjustmentCount(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error)
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter              metric.Meter
	Logger             *zap.Logger
	CollectInterval    time.Duration // Default: 5 minutes
	AdjustmentProvider AdjustmentMetricsProvider
}

// NewBillingMetrics creates a new BillingMetrics instance.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		meter:              cfg.Meter,
		logger:             logger,
		stopChan:           make(chan struct{}),
		adjustmentProvider: cfg.AdjustmentProvider,
	}

	// Initialize counter metrics
	var err error

	bm.adjustmentTotal, err = NewCounter(
		cfg.Meter,
		"timebill_adjustment_total",
		"Total number of billing adjustments applied",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	bm.adjustmentHoursTotal, err = NewCounter(
		cfg.Meter,
		"timebill_adjustment_hours_total",
		"Total adjusted billable hours in hundredths of an hour",
		"{centihours}",
	)
	if err != nil {
		return nil, err
	}

	bm.allocationTotal, err = NewCounter(
		cfg.Meter,
		"timebill_allocation_total",
		"Total number of project billable-total allocations",
		"{allocations}",
	)
	if err != nil {
		return nil, err
	}

	bm.viewTotal, err = NewCounter(
		cfg.Meter,
		"timebill_billing_view_total",
		"Total number of billing view requests",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	bm.activeAdjustments, err = NewGauge(
		cfg.Meter,
		"timebill_active_adjustments",
		"Number of stored billing adjustments",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Adjustment Metrics
// =============================================================================

// RecordAdjustment records a billing adjustment write.
// This should be called from the application layer after a successful upsert.
func (bm *BillingMetrics) RecordAdjustment(ctx context.Context, tenantID, projectID uuid.UUID, adjustedHours decimal.Decimal) {
	bm.adjustmentTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrProjectID.String(projectID.String()),
	)

	// Convert to hundredths of an hour for an integer counter
	centihours := adjustedHours.Mul(decimal.NewFromInt(100)).IntPart()
	bm.adjustmentHoursTotal.Add(ctx, centihours,
		AttrTenantID.String(tenantID.String()),
		AttrProjectID.String(projectID.String()),
	)
}

// =============================================================================
// Allocation Metrics
// =============================================================================

// AllocationOutcome represents the result of an allocation run for metrics
// labeling.
type AllocationOutcome string

const (
	AllocationOutcomeApplied AllocationOutcome = "applied"
	AllocationOutcomePartial AllocationOutcome = "partial"
	AllocationOutcomeFailed  AllocationOutcome = "failed"
)

// RecordAllocation records a project billable-total allocation run.
func (bm *BillingMetrics) RecordAllocation(ctx context.Context, tenantID, projectID uuid.UUID, strategyName string, outcome AllocationOutcome) {
	bm.allocationTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrProjectID.String(projectID.String()),
		AttrStrategy.String(strategyName),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// View Metrics
// =============================================================================

// RecordViewRequest records a billing view render. viewType is one of
// "project", "user", or "task".
func (bm *BillingMetrics) RecordViewRequest(ctx context.Context, tenantID uuid.UUID, viewType string) {
	bm.viewTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrViewType.String(viewType),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BillingMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectAdjustmentMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic billing metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic billing metrics collection")
			return
		case <-ticker.C:
			bm.collectAdjustmentMetrics(ctx, tenantProvider)
		}
	}
}

// collectAdjustmentMetrics collects adjustment gauge metrics for all tenants.
func (bm *BillingMetrics) collectAdjustmentMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.adjustmentProvider == nil {
		bm.logger.Debug("No adjustment provider configured, skipping adjustment metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		counts, err := bm.adjustmentProvider.GetActiveAdjustmentCount(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to get adjustment counts for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for projectID, count := range counts {
			bm.activeAdjustments.Record(ctx, count,
				AttrTenantID.String(tenantID.String()),
				AttrProjectID.String(projectID.String()),
			)
		}
	}
}

// Stop stops the periodic collection.
func (bm *BillingMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
