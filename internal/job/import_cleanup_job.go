package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/filestore"
	"github.com/xxxsen/markport/internal/metrics"
	"github.com/xxxsen/markport/internal/model"
)

const defaultImportTTL = 24 * time.Hour

type StaleJobStore interface {
	CleanupStaleJobs(ctx context.Context, ttl time.Duration) ([]model.ImportJob, error)
}

// ImportCleanupJob removes import jobs that outlived their ttl, finished or
// not, together with their chunks and archived uploads.
type ImportCleanupJob struct {
	store   StaleJobStore
	archive filestore.Store
	ttl     time.Duration
}

func NewImportCleanupJob(store StaleJobStore, archive filestore.Store, ttl time.Duration) *ImportCleanupJob {
	return &ImportCleanupJob{store: store, archive: archive, ttl: ttl}
}

func (j *ImportCleanupJob) Name() string {
	return "import_cleanup"
}

func (j *ImportCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	ttl := j.ttl
	if ttl <= 0 {
		ttl = defaultImportTTL
	}
	removed, err := j.store.CleanupStaleJobs(ctx, ttl)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for _, job := range removed {
		if j.archive == nil || job.ArchiveKey == "" {
			continue
		}
		if err := j.archive.Delete(ctx, job.ArchiveKey); err != nil {
			logger.Warn("archive delete failed", zap.String("job_id", job.ID), zap.String("key", job.ArchiveKey), zap.Error(err))
		}
	}
	metrics.StaleJobsRemoved.Add(float64(len(removed)))
	if len(removed) > 0 {
		logger.Info("stale import jobs removed", zap.Int("count", len(removed)), zap.Duration("ttl", ttl))
	}
	return nil
}
