package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/dbutil"
	"github.com/xxxsen/markport/internal/pkg/dbx"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

type ImportChunkRepo struct {
	db     dbx.DBTX
	driver string
}

func NewImportChunkRepo(db dbx.DBTX, driver string) *ImportChunkRepo {
	return &ImportChunkRepo{db: db, driver: driver}
}

func (r *ImportChunkRepo) withTx(tx dbx.DBTX) *ImportChunkRepo {
	return &ImportChunkRepo{db: tx, driver: r.driver}
}

func (r *ImportChunkRepo) CreateBatch(ctx context.Context, chunks []model.ImportChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		payload, err := json.Marshal(chunk.Bookmarks)
		if err != nil {
			return fmt.Errorf("encode chunk %d: %w", chunk.Index, err)
		}
		rows = append(rows, map[string]interface{}{
			"id":           chunk.ID,
			"job_id":       chunk.JobID,
			"owner_id":     chunk.OwnerID,
			"chunk_index":  chunk.Index,
			"status":       chunk.Status,
			"payload_json": string(payload),
			"ctime":        chunk.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("import_chunks", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// NextPending returns the pending chunk with the lowest index.
func (r *ImportChunkRepo) NextPending(ctx context.Context, jobID string) (*model.ImportChunk, error) {
	where := map[string]interface{}{
		"job_id":   jobID,
		"status":   model.ChunkStatusPending,
		"_orderby": "chunk_index asc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("import_chunks", where,
		[]string{"id", "job_id", "owner_id", "chunk_index", "status", "payload_json", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	var chunk model.ImportChunk
	var payload string
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&chunk.ID, &chunk.JobID, &chunk.OwnerID, &chunk.Index, &chunk.Status, &payload, &chunk.Ctime,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &chunk.Bookmarks); err != nil {
		return nil, fmt.Errorf("decode chunk %d: %w", chunk.Index, err)
	}
	return &chunk, nil
}

// MarkDone flips a pending chunk to done. It reports false when the chunk
// was already done.
func (r *ImportChunkRepo) MarkDone(ctx context.Context, jobID, chunkID string) (bool, error) {
	where := map[string]interface{}{
		"id":     chunkID,
		"job_id": jobID,
		"status": model.ChunkStatusPending,
	}
	sqlStr, args, err := builder.BuildUpdate("import_chunks", where, map[string]interface{}{"status": model.ChunkStatusDone})
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

func (r *ImportChunkRepo) DeleteByJobIDs(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildDelete("import_chunks", map[string]interface{}{"job_id in": jobIDs})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
