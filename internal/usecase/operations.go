package usecase

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

type OperationsStatus struct {
	Providers []provider.HealthRecord `json:"providers"`
	Scheduler SchedulerStatus         `json:"scheduler"`
}

// Operations backs the admin actions: refresh, start, stop and status.
type Operations struct {
	scheduler *LiveUpdateScheduler
	health    *HealthMonitor
	token     string
	logger    *logging.Logger

	// baseCtx parents the scheduler loop so it is not tied to the request that started it.
	baseCtx context.Context
}

func NewOperations(baseCtx context.Context, scheduler *LiveUpdateScheduler, health *HealthMonitor, token string, logger *logging.Logger) *Operations {
	if logger == nil {
		logger = logging.Default()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Operations{
		scheduler: scheduler,
		health:    health,
		token:     strings.TrimSpace(token),
		logger:    logger,
		baseCtx:   baseCtx,
	}
}

// Authorize rejects every token when none is configured.
func (o *Operations) Authorize(token string) error {
	token = strings.TrimSpace(token)
	if o.token == "" || token == "" {
		return fmt.Errorf("%w: ops token required", ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(o.token), []byte(token)) != 1 {
		return fmt.Errorf("%w: invalid ops token", ErrUnauthorized)
	}
	return nil
}

func (o *Operations) Refresh(ctx context.Context) LiveUpdateReport {
	ctx, span := startUsecaseSpan(ctx, "usecase.Operations.Refresh")
	defer span.End()

	o.logger.InfoContext(ctx, "manual live refresh requested")
	return o.scheduler.UpdateAllMatches(ctx)
}

func (o *Operations) Start(ctx context.Context) SchedulerStatus {
	if o.scheduler.Start(o.baseCtx) {
		o.logger.InfoContext(ctx, "live update scheduler started by operator")
	}
	return o.scheduler.Status()
}

func (o *Operations) Stop(ctx context.Context) SchedulerStatus {
	if o.scheduler.Stop() {
		o.logger.InfoContext(ctx, "live update scheduler stopped by operator")
	}
	return o.scheduler.Status()
}

func (o *Operations) Status() OperationsStatus {
	return OperationsStatus{
		Providers: o.health.Snapshot(),
		Scheduler: o.scheduler.Status(),
	}
}

// ResetProvider is the manual re-enable of a DOWN adapter.
func (o *Operations) ResetProvider(ctx context.Context, name string) (provider.HealthRecord, error) {
	if !o.health.Reset(name) {
		return provider.HealthRecord{}, fmt.Errorf("%w: provider %s", ErrNotFound, name)
	}
	o.logger.InfoContext(ctx, "provider health reset by operator", "provider", name)
	record, _ := o.health.Record(name)
	return record, nil
}
