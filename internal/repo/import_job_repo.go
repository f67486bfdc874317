package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/dbutil"
	"github.com/xxxsen/markport/internal/pkg/dbx"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

var importJobColumns = []string{
	"id", "owner_id", "format", "status", "total", "skipped", "imported", "failed",
	"total_chunks", "processed_chunks", "tags_json", "error", "archive_key", "ctime", "mtime",
}

type ImportJobRepo struct {
	db     dbx.DBTX
	driver string
}

func NewImportJobRepo(db dbx.DBTX, driver string) *ImportJobRepo {
	return &ImportJobRepo{db: db, driver: driver}
}

func (r *ImportJobRepo) withTx(tx dbx.DBTX) *ImportJobRepo {
	return &ImportJobRepo{db: tx, driver: r.driver}
}

func (r *ImportJobRepo) Create(ctx context.Context, job *model.ImportJob) error {
	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":               job.ID,
		"owner_id":         job.OwnerID,
		"format":           job.Format,
		"status":           job.Status,
		"total":            job.Total,
		"skipped":          job.Skipped,
		"imported":         job.Imported,
		"failed":           job.Failed,
		"total_chunks":     job.TotalChunks,
		"processed_chunks": job.ProcessedChunks,
		"tags_json":        string(tagsJSON),
		"error":            job.Error,
		"archive_key":      job.ArchiveKey,
		"ctime":            job.Ctime,
		"mtime":            job.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("import_jobs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *ImportJobRepo) Get(ctx context.Context, jobID string) (*model.ImportJob, error) {
	jobs, err := r.list(ctx, map[string]interface{}{"id": jobID})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &jobs[0], nil
}

func (r *ImportJobRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.ImportJob, error) {
	return r.list(ctx, map[string]interface{}{"owner_id": ownerID, "_orderby": "ctime asc"})
}

func (r *ImportJobRepo) ListBefore(ctx context.Context, cutoff int64) ([]model.ImportJob, error) {
	return r.list(ctx, map[string]interface{}{"ctime <": cutoff, "_orderby": "ctime asc"})
}

func (r *ImportJobRepo) list(ctx context.Context, where map[string]interface{}) ([]model.ImportJob, error) {
	sqlStr, args, err := builder.BuildSelect("import_jobs", where, importJobColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	jobs := make([]model.ImportJob, 0)
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanImportJob(rows *sql.Rows) (*model.ImportJob, error) {
	var job model.ImportJob
	var tagsJSON string
	if err := rows.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Format,
		&job.Status,
		&job.Total,
		&job.Skipped,
		&job.Imported,
		&job.Failed,
		&job.TotalChunks,
		&job.ProcessedChunks,
		&tagsJSON,
		&job.Error,
		&job.ArchiveKey,
		&job.Ctime,
		&job.Mtime,
	); err != nil {
		return nil, err
	}
	job.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &job.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

// UpdateStatusIf moves the job to toStatus only while it is in one of
// fromStatuses. It reports whether a row changed.
func (r *ImportJobRepo) UpdateStatusIf(ctx context.Context, jobID string, fromStatuses []string, toStatus, errMsg string, mtime int64) (bool, error) {
	where := map[string]interface{}{
		"id":        jobID,
		"status in": fromStatuses,
	}
	update := map[string]interface{}{
		"status": toStatus,
		"error":  errMsg,
		"mtime":  mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("import_jobs", where, update)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddProgress adds one finished chunk and its counts to the job.
func (r *ImportJobRepo) AddProgress(ctx context.Context, jobID string, imported, failed int, mtime int64) error {
	const query = `
		UPDATE import_jobs
		SET imported = imported + ?,
			failed = failed + ?,
			processed_chunks = processed_chunks + 1,
			mtime = ?
		WHERE id = ? AND processed_chunks < total_chunks
	`
	sqlStr, args := dbutil.Finalize(r.driver, query, []interface{}{imported, failed, mtime, jobID})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ImportJobRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildDelete("import_jobs", map[string]interface{}{"id in": ids})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
