package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/markport/internal/batch"
	"github.com/xxxsen/markport/internal/filestore"
	"github.com/xxxsen/markport/internal/metrics"
	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/parser"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/reconcile"
	"github.com/xxxsen/markport/internal/remote"
	"github.com/xxxsen/markport/internal/repo"
)

const reauthMessage = "remote session expired, please re-authenticate and start the import again"

type ImportOptions struct {
	Collections remote.Collections
	URLPolicy   reconcile.URLPolicy
	MaxOps      int
	PageSize    int
}

// StartResult answers an upload. Result is set when nothing was left to
// import and no job was created.
type StartResult struct {
	JobID       string
	Format      string
	Total       int
	Skipped     int
	ToImport    int
	TotalChunks int
	Result      *model.ImportSummary
}

// ProcessResult answers one process call. Imported and Failed count the
// chunk handled by this call only.
type ProcessResult struct {
	Done          bool
	Imported      int
	Failed        int
	TotalImported int
	TotalFailed   int
	Remaining     int
	Result        *model.ImportSummary
}

type ImportService struct {
	store     *repo.ImportStore
	connector remote.Connector
	archive   filestore.Store
	tids      *remote.TIDClock
	writes    *batch.Executor[remote.Write]
	opts      ImportOptions
}

func NewImportService(store *repo.ImportStore, connector remote.Connector, archive filestore.Store, opts ImportOptions) *ImportService {
	if opts.Collections == (remote.Collections{}) {
		opts.Collections = remote.DefaultCollections()
	}
	if opts.MaxOps <= 0 {
		opts.MaxOps = remote.MaxWritesPerCall
	}
	if opts.PageSize <= 0 {
		opts.PageSize = remote.DefaultPageSize
	}
	return &ImportService{
		store:     store,
		connector: connector,
		archive:   archive,
		tids:      remote.NewTIDClock(),
		writes:    batch.NewExecutor[remote.Write](batch.Options{MaxOps: opts.MaxOps, Concurrency: 1}),
		opts:      opts,
	}
}

// StartImport parses content, drops bookmarks the owner already has and
// stores the rest as a chunked job. Any earlier job of the owner is removed.
func (s *ImportService) StartImport(ctx context.Context, ownerID string, content []byte) (*StartResult, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, appErr.ErrEmptyFile
	}
	format, items, err := parser.Parse(content)
	if err != nil {
		return nil, err
	}
	total := len(items)
	logger := logutil.GetLogger(ctx).With(zap.String("owner", ownerID), zap.String("format", string(format)))

	repoClient, err := s.connector.Connect(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	existing, knownTags := s.loadRemoteState(ctx, repoClient)

	kept, skipped := reconcile.Filter(items, existing)
	metrics.ImportJobsStarted.WithLabelValues(string(format)).Inc()
	metrics.ImportBookmarks.WithLabelValues("skipped").Add(float64(skipped))
	if len(kept) == 0 {
		logger.Info("nothing to import", zap.Int("total", total), zap.Int("skipped", skipped))
		return &StartResult{
			Format:  string(format),
			Total:   total,
			Skipped: skipped,
			Result: &model.ImportSummary{
				Skipped: skipped,
				Total:   total,
				Format:  string(format),
			},
		}, nil
	}
	resolved, newTags := reconcile.ResolveTags(kept, knownTags)

	if err := s.dropOwnerJobs(ctx, ownerID); err != nil {
		return nil, err
	}

	job := &model.ImportJob{
		ID:      newID(),
		OwnerID: ownerID,
		Format:  string(format),
		Total:   total,
		Skipped: skipped,
		Tags:    newTags,
	}
	job.ArchiveKey = s.archiveUpload(ctx, job.ID, content)

	chunkItems := make([]model.ChunkBookmark, 0, len(resolved))
	for _, item := range resolved {
		chunkItems = append(chunkItems, model.ChunkBookmark{RKey: s.tids.Next(), ImportedBookmark: item})
	}
	if err := s.store.CreateJob(ctx, job, chunkItems); err != nil {
		s.removeArchive(ctx, job.ArchiveKey)
		return nil, fmt.Errorf("create import job: %w", err)
	}
	logger.Info("import job created",
		zap.String("job_id", job.ID),
		zap.Int("total", total),
		zap.Int("skipped", skipped),
		zap.Int("to_import", len(chunkItems)),
		zap.Int("chunks", job.TotalChunks),
		zap.Int("new_tags", len(newTags)))
	return &StartResult{
		JobID:       job.ID,
		Format:      job.Format,
		Total:       total,
		Skipped:     skipped,
		ToImport:    len(chunkItems),
		TotalChunks: job.TotalChunks,
	}, nil
}

// loadRemoteState lists existing bookmarks and tags in parallel. A failed
// bookmark listing degrades to an empty set so the import still runs.
func (s *ImportService) loadRemoteState(ctx context.Context, repoClient remote.Repo) (*reconcile.URLSet, []string) {
	var (
		subjects  []string
		knownTags []string
		listErr   error
		tagErr    error
	)
	eg := errgroup.Group{}
	eg.Go(func() error {
		records, err := remote.ListAll(ctx, repoClient, s.opts.Collections.Bookmark, s.opts.PageSize)
		if err != nil {
			listErr = err
			return nil
		}
		subjects = make([]string, 0, len(records))
		for i := range records {
			var rec remote.BookmarkRecord
			if err := records[i].Decode(&rec); err != nil || rec.Subject == "" {
				continue
			}
			subjects = append(subjects, rec.Subject)
		}
		return nil
	})
	eg.Go(func() error {
		knownTags, tagErr = listTagValues(ctx, repoClient, s.opts.Collections.Tag, s.opts.PageSize)
		return nil
	})
	_ = eg.Wait()

	logger := logutil.GetLogger(ctx)
	if listErr != nil {
		metrics.DedupListings.WithLabelValues("fallback").Inc()
		logger.Warn("existing bookmark listing failed, importing without dedup",
			zap.String("dedup_mode", "fallback"), zap.Error(listErr))
		subjects = nil
	} else {
		metrics.DedupListings.WithLabelValues("normal").Inc()
	}
	if tagErr != nil {
		logger.Warn("existing tag listing failed", zap.Error(tagErr))
		knownTags = nil
	}
	return reconcile.NewURLSet(s.opts.URLPolicy, subjects), knownTags
}

func (s *ImportService) dropOwnerJobs(ctx context.Context, ownerID string) error {
	removed, err := s.store.DeleteJobsForOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("clear previous import jobs: %w", err)
	}
	for _, job := range removed {
		s.removeArchive(ctx, job.ArchiveKey)
	}
	if len(removed) > 0 {
		logutil.GetLogger(ctx).Info("previous import jobs replaced", zap.String("owner", ownerID), zap.Int("count", len(removed)))
	}
	return nil
}

func (s *ImportService) archiveUpload(ctx context.Context, jobID string, content []byte) string {
	if s.archive == nil {
		return ""
	}
	key := archiveKey(jobID)
	if err := s.archive.Save(ctx, key, bytes.NewReader(content), int64(len(content))); err != nil {
		logutil.GetLogger(ctx).Warn("archive upload failed", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	return key
}

func (s *ImportService) removeArchive(ctx context.Context, key string) {
	if s.archive == nil || key == "" {
		return
	}
	if err := s.archive.Delete(ctx, key); err != nil {
		logutil.GetLogger(ctx).Warn("archive delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Status returns the job if ownerID owns it.
func (s *ImportService) Status(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, appErr.ErrForbidden
	}
	return job, nil
}

// ProcessNext advances the job by one chunk. Once no chunk is left the job
// is finalized; further calls return the final summary.
func (s *ImportService) ProcessNext(ctx context.Context, ownerID, jobID string) (*ProcessResult, error) {
	job, err := s.Status(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case model.ImportStatusCompleted:
		return doneResult(job), nil
	case model.ImportStatusFailed:
		return nil, fmt.Errorf("%w: %s", appErr.ErrJobFailed, job.Error)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("owner", ownerID), zap.String("job_id", jobID))

	repoClient, err := s.connector.Connect(ctx, ownerID)
	if err != nil {
		if appErr.IsReauthRequired(err) {
			s.failJob(ctx, job, reauthMessage)
		}
		return nil, err
	}
	if job.Status == model.ImportStatusPending {
		if _, err := s.store.MarkJobProcessing(ctx, job.ID); err != nil {
			return nil, fmt.Errorf("mark job processing: %w", err)
		}
	}

	chunk, err := s.store.NextPendingChunk(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("load next chunk: %w", err)
	}
	if chunk == nil {
		return s.finalize(ctx, repoClient, job)
	}

	start := time.Now()
	items := s.chunkWrites(repoClient.DID(), chunk)
	res := writeGroups(ctx, repoClient, s.writes, items, "import")
	if lostSession(res) {
		s.failJob(ctx, job, reauthMessage)
		return nil, appErr.ErrReauthRequired
	}
	imported, failed := len(res.Succeeded), len(res.Failed)
	applied, err := s.store.CompleteChunk(ctx, job.ID, chunk.ID, imported, failed)
	if err != nil {
		return nil, fmt.Errorf("complete chunk %d: %w", chunk.Index, err)
	}
	metrics.ChunkDuration.Observe(time.Since(start).Seconds())
	if !applied {
		logger.Info("chunk already completed by another call", zap.Int("chunk", chunk.Index))
		imported, failed = 0, 0
	} else {
		metrics.ImportBookmarks.WithLabelValues("imported").Add(float64(imported))
		metrics.ImportBookmarks.WithLabelValues("failed").Add(float64(failed))
	}

	job, err = s.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("import chunk processed",
		zap.Int("chunk", chunk.Index),
		zap.Int("imported", imported),
		zap.Int("failed", failed),
		zap.Int("remaining", job.Remaining()))
	return &ProcessResult{
		Imported:      imported,
		Failed:        failed,
		TotalImported: job.Imported,
		TotalFailed:   job.Failed,
		Remaining:     job.Remaining(),
	}, nil
}

// chunkWrites builds one batch item per bookmark: the bookmark record and,
// when there is a title or description, an annotation under the same rkey.
func (s *ImportService) chunkWrites(did string, chunk *model.ImportChunk) []batch.Item[remote.Write] {
	cols := s.opts.Collections
	items := make([]batch.Item[remote.Write], 0, len(chunk.Bookmarks))
	for _, bm := range chunk.Bookmarks {
		ops := []remote.Write{remote.CreateWrite(cols.Bookmark, bm.RKey, remote.BookmarkRecord{
			Type:      cols.Bookmark,
			Subject:   bm.URL,
			CreatedAt: bm.CreatedAt,
			Tags:      bm.Tags,
		})}
		if bm.HasAnnotation() {
			ops = append(ops, remote.CreateWrite(cols.Annotation, bm.RKey, remote.AnnotationRecord{
				Type:        cols.Annotation,
				Subject:     remote.RecordURI(did, cols.Bookmark, bm.RKey),
				Title:       bm.Title,
				Description: bm.Description,
				CreatedAt:   bm.CreatedAt,
			}))
		}
		items = append(items, batch.Item[remote.Write]{Key: bm.RKey, Ops: ops})
	}
	return items
}

// finalize creates the tag records the job still needs and completes it.
func (s *ImportService) finalize(ctx context.Context, repoClient remote.Repo, job *model.ImportJob) (*ProcessResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("job_id", job.ID))
	if len(job.Tags) > 0 {
		known, err := listTagValues(ctx, repoClient, s.opts.Collections.Tag, s.opts.PageSize)
		if err != nil {
			logger.Warn("tag listing before creation failed", zap.Error(err))
			known = nil
		}
		created := createMissingTags(ctx, repoClient, s.writes, s.tids, s.opts.Collections.Tag, known, job.Tags, "import_tags")
		logger.Info("tag records created", zap.Int("created", created), zap.Int("wanted", len(job.Tags)))
	}
	changed, err := s.store.MarkJobCompleted(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("mark job completed: %w", err)
	}
	job, err = s.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.ImportJobsFinished.WithLabelValues(model.ImportStatusCompleted).Inc()
		logger.Info("import job completed",
			zap.Int("imported", job.Imported),
			zap.Int("failed", job.Failed),
			zap.Int("skipped", job.Skipped),
			zap.Int("total", job.Total))
	}
	if job.Status == model.ImportStatusFailed {
		return nil, fmt.Errorf("%w: %s", appErr.ErrJobFailed, job.Error)
	}
	return doneResult(job), nil
}

func (s *ImportService) failJob(ctx context.Context, job *model.ImportJob, message string) {
	changed, err := s.store.MarkJobFailed(ctx, job.ID, message)
	if err != nil {
		logutil.GetLogger(ctx).Error("mark job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	if changed {
		metrics.ImportJobsFinished.WithLabelValues(model.ImportStatusFailed).Inc()
		logutil.GetLogger(ctx).Warn("import job failed", zap.String("job_id", job.ID), zap.String("reason", message))
	}
}

func doneResult(job *model.ImportJob) *ProcessResult {
	return &ProcessResult{
		Done:          true,
		TotalImported: job.Imported,
		TotalFailed:   job.Failed,
		Remaining:     0,
		Result:        job.Summary(),
	}
}

// lostSession reports whether every group failed because the remote
// rejected the credentials.
func lostSession(res *batch.Result) bool {
	if res.Groups == 0 || len(res.Errors) < res.Groups {
		return false
	}
	for _, err := range res.Errors {
		if !errors.Is(err, appErr.ErrReauthRequired) {
			return false
		}
	}
	return true
}
