package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/dbx"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

const chunkInsertBatch = 100

// ImportStore keeps import jobs and their chunks. Operations touching both
// tables run in one transaction.
type ImportStore struct {
	db        *sql.DB
	jobs      *ImportJobRepo
	chunks    *ImportChunkRepo
	chunkSize int
	now       func() time.Time
}

func NewImportStore(db *sql.DB, driver string, chunkSize int) *ImportStore {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &ImportStore{
		db:        db,
		jobs:      NewImportJobRepo(db, driver),
		chunks:    NewImportChunkRepo(db, driver),
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

// CreateJob splits bookmarks into chunks and stores the job together with
// all of them. job.ID, TotalChunks, Status and timestamps are filled in.
func (s *ImportStore) CreateJob(ctx context.Context, job *model.ImportJob, bookmarks []model.ChunkBookmark) error {
	now := s.now().Unix()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = model.ImportStatusPending
	job.Ctime = now
	job.Mtime = now
	chunks := make([]model.ImportChunk, 0, (len(bookmarks)+s.chunkSize-1)/s.chunkSize)
	for start := 0; start < len(bookmarks); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(bookmarks) {
			end = len(bookmarks)
		}
		chunks = append(chunks, model.ImportChunk{
			ID:        uuid.NewString(),
			JobID:     job.ID,
			OwnerID:   job.OwnerID,
			Index:     len(chunks),
			Status:    model.ChunkStatusPending,
			Bookmarks: bookmarks[start:end],
			Ctime:     now,
		})
	}
	job.TotalChunks = len(chunks)
	job.ProcessedChunks = 0
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.jobs.withTx(tx).Create(ctx, job); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		chunkRepo := s.chunks.withTx(tx)
		for start := 0; start < len(chunks); start += chunkInsertBatch {
			end := start + chunkInsertBatch
			if end > len(chunks) {
				end = len(chunks)
			}
			if err := chunkRepo.CreateBatch(ctx, chunks[start:end]); err != nil {
				return fmt.Errorf("create chunks: %w", err)
			}
		}
		return nil
	})
}

func (s *ImportStore) GetJob(ctx context.Context, jobID string) (*model.ImportJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// NextPendingChunk returns the pending chunk with the lowest index, or nil
// when every chunk is done.
func (s *ImportStore) NextPendingChunk(ctx context.Context, jobID string) (*model.ImportChunk, error) {
	chunk, err := s.chunks.NextPending(ctx, jobID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return chunk, nil
}

// CompleteChunk marks the chunk done and adds its counts to the job. A chunk
// that is already done leaves the job untouched and reports false.
func (s *ImportStore) CompleteChunk(ctx context.Context, jobID, chunkID string, imported, failed int) (bool, error) {
	applied := false
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.chunks.withTx(tx).MarkDone(ctx, jobID, chunkID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.jobs.withTx(tx).AddProgress(ctx, jobID, imported, failed, s.now().Unix()); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *ImportStore) MarkJobProcessing(ctx context.Context, jobID string) (bool, error) {
	return s.jobs.UpdateStatusIf(ctx, jobID, []string{model.ImportStatusPending}, model.ImportStatusProcessing, "", s.now().Unix())
}

func (s *ImportStore) MarkJobCompleted(ctx context.Context, jobID string) (bool, error) {
	return s.jobs.UpdateStatusIf(ctx, jobID,
		[]string{model.ImportStatusPending, model.ImportStatusProcessing},
		model.ImportStatusCompleted, "", s.now().Unix())
}

func (s *ImportStore) MarkJobFailed(ctx context.Context, jobID, message string) (bool, error) {
	return s.jobs.UpdateStatusIf(ctx, jobID,
		[]string{model.ImportStatusPending, model.ImportStatusProcessing},
		model.ImportStatusFailed, message, s.now().Unix())
}

// DeleteJobsForOwner removes every job of ownerID with its chunks and
// returns the removed jobs.
func (s *ImportStore) DeleteJobsForOwner(ctx context.Context, ownerID string) ([]model.ImportJob, error) {
	var removed []model.ImportJob
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		jobs, err := s.jobs.withTx(tx).ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := s.deleteJobs(ctx, tx, jobs); err != nil {
			return err
		}
		removed = jobs
		return nil
	})
	return removed, err
}

// CleanupStaleJobs removes jobs created more than ttl ago, whatever their
// status.
func (s *ImportStore) CleanupStaleJobs(ctx context.Context, ttl time.Duration) ([]model.ImportJob, error) {
	cutoff := s.now().Add(-ttl).Unix()
	var removed []model.ImportJob
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		jobs, err := s.jobs.withTx(tx).ListBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if err := s.deleteJobs(ctx, tx, jobs); err != nil {
			return err
		}
		removed = jobs
		return nil
	})
	return removed, err
}

func (s *ImportStore) deleteJobs(ctx context.Context, tx dbx.DBTX, jobs []model.ImportJob) error {
	if len(jobs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	if err := s.chunks.withTx(tx).DeleteByJobIDs(ctx, ids); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.jobs.withTx(tx).DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}
	return nil
}
