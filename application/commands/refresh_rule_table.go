package commands

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/events"
	"referral-backend/domain/services"
	appErrors "referral-backend/pkg/errors"
	"referral-backend/pkg/observability"
)

// RefreshRuleTableCommand forces a reload and recompilation of the rule
// table. Used after table authors publish a new version.
type RefreshRuleTableCommand struct{}

// Validate checks the command fields
func (c RefreshRuleTableCommand) Validate() error {
	return nil
}

// refreshLockResource names the lock serializing refreshes across instances
const refreshLockResource = "rule-table-refresh"

// refreshLockTTL bounds how long a crashed refresh can hold the lock
const refreshLockTTL = 2 * time.Minute

// RefreshRuleTableHandler handles the RefreshRuleTableCommand
type RefreshRuleTableHandler struct {
	tables   ports.RuleTableProvider
	eventBus ports.EventBus
	locker   ports.Locker
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRefreshRuleTableHandler creates a new handler instance. The locker
// is optional; when nil refreshes are not serialized across instances.
func NewRefreshRuleTableHandler(
	tables ports.RuleTableProvider,
	eventBus ports.EventBus,
	locker ports.Locker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RefreshRuleTableHandler {
	return &RefreshRuleTableHandler{
		tables:   tables,
		eventBus: eventBus,
		locker:   locker,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle executes the refresh rule table command
func (h *RefreshRuleTableHandler) Handle(ctx context.Context, cmd RefreshRuleTableCommand) (*services.CompiledTable, error) {
	start := time.Now()

	if h.locker != nil {
		owner, _ := os.Hostname()
		if owner == "" {
			owner = "refresh"
		}
		lease, err := h.locker.Acquire(ctx, refreshLockResource, owner, refreshLockTTL)
		if err != nil {
			h.logger.Warn("Refresh lock not acquired", zap.Error(err))
			return nil, appErrors.NewConflictError("a rule table refresh is already in progress")
		}
		defer func() {
			if err := lease.Release(ctx); err != nil {
				h.logger.Warn("Failed to release refresh lock", zap.Error(err))
			}
		}()
	}

	table, err := h.tables.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	domains := make([]string, 0, len(table.Domains()))
	for _, d := range table.Domains() {
		domains = append(domains, d.String())
	}

	event := events.NewRuleTableCompiled(domains, table.QuestionCount(), table.RuleCount(), time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish compile event", zap.Error(err))
	}

	if h.metrics != nil {
		h.metrics.RecordCompile(ctx, len(domains), len(table.Failures()), time.Since(start))
	}

	h.logger.Info("Rule table recompiled",
		zap.Int("domains", len(domains)),
		zap.Int("failures", len(table.Failures())),
		zap.String("hash", table.Hash()),
	)

	return table, nil
}
