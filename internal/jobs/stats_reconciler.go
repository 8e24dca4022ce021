// File: internal/jobs/stats_reconciler.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"catalog_hierarchy_backend/internal/category"
	"catalog_hierarchy_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatsReconcilerJob periodically recomputes every category's denormalized
// children_count from ground truth. The counters are maintained
// transactionally by normal writes; this sweep repairs any drift introduced
// outside those paths (manual data fixes, restores from backup).
type StatsReconcilerJob struct {
	repo          category.Repository
	cacheManager  *category.CoherenceManager
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewStatsReconcilerJob creates a new StatsReconcilerJob.
func NewStatsReconcilerJob(
	repo category.Repository,
	cacheManager *category.CoherenceManager,
	logger *zap.Logger,
	cfg *config.Config,
) *StatsReconcilerJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &StatsReconcilerJob{
		repo:          repo,
		cacheManager:  cacheManager,
		logger:        logger.Named("StatsReconcilerJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *StatsReconcilerJob) SetupAndStart() error {
	jobSpec := j.cfg.StatsReconcileJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Stats reconcile job schedule not defined (STATS_RECONCILE_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule stats reconcile job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Stats reconcile job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob recounts children for every live category and bumps the cache
// version once at the end so cached trees pick up any corrections.
func (j *StatsReconcilerJob) runJob() {
	j.logger.Info("Starting stats reconcile job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := j.repo.FindAllLiveIDs(ctx)
	if err != nil {
		j.logger.Error("Stats reconcile job run failed to list categories", zap.Error(err))
		return
	}

	var failures int
	for _, id := range ids {
		if _, err := j.repo.RecountChildren(ctx, id); err != nil {
			failures++
			j.logger.Warn("Failed to recount children", zap.String("id", id.String()), zap.Error(err))
		}
	}
	j.cacheManager.Bump(ctx, category.CacheNamespace)

	j.logger.Info("Stats reconcile job run completed",
		zap.Int("categories", len(ids)), zap.Int("failures", failures))
}

// Stop gracefully stops the cron scheduler.
func (j *StatsReconcilerJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping stats reconcile job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Stats reconcile job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Stats reconcile job scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Info(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
