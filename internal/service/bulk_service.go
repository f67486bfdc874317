package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/markport/internal/batch"
	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/reconcile"
	"github.com/xxxsen/markport/internal/remote"
)

const maxBulkItems = 500

type BulkOptions struct {
	Collections remote.Collections
	MaxOps      int
	Concurrency int
	PageSize    int
}

// BulkService edits many existing bookmarks at once. Each bookmark succeeds
// or fails on its own.
type BulkService struct {
	connector remote.Connector
	tids      *remote.TIDClock
	writes    *batch.Executor[remote.Write]
	opts      BulkOptions
}

func NewBulkService(connector remote.Connector, opts BulkOptions) *BulkService {
	if opts.Collections == (remote.Collections{}) {
		opts.Collections = remote.DefaultCollections()
	}
	if opts.MaxOps <= 0 {
		opts.MaxOps = remote.MaxWritesPerCall
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.PageSize <= 0 {
		opts.PageSize = remote.DefaultPageSize
	}
	return &BulkService{
		connector: connector,
		tids:      remote.NewTIDClock(),
		writes:    batch.NewExecutor[remote.Write](batch.Options{MaxOps: opts.MaxOps, Concurrency: opts.Concurrency}),
		opts:      opts,
	}
}

func normalizeRKeys(rkeys []string) ([]string, error) {
	seen := make(map[string]struct{}, len(rkeys))
	out := make([]string, 0, len(rkeys))
	for _, rkey := range rkeys {
		rkey = strings.TrimSpace(rkey)
		if rkey == "" {
			continue
		}
		if _, ok := seen[rkey]; ok {
			continue
		}
		seen[rkey] = struct{}{}
		out = append(out, rkey)
	}
	if len(out) == 0 || len(out) > maxBulkItems {
		return nil, appErr.ErrInvalid
	}
	return out, nil
}

func bulkResult(rkeys []string, res *batch.Result, extraFailed []string) *model.BulkResult {
	out := &model.BulkResult{Succeeded: []string{}, Failed: []string{}}
	for _, idx := range res.Succeeded {
		out.Succeeded = append(out.Succeeded, rkeys[idx])
	}
	for _, idx := range res.Failed {
		out.Failed = append(out.Failed, rkeys[idx])
	}
	out.Failed = append(out.Failed, extraFailed...)
	return out
}

// Delete removes the bookmarks and their annotations.
func (s *BulkService) Delete(ctx context.Context, ownerID string, rkeys []string) (*model.BulkResult, error) {
	rkeys, err := normalizeRKeys(rkeys)
	if err != nil {
		return nil, err
	}
	repoClient, err := s.connector.Connect(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	cols := s.opts.Collections
	annotated := make(map[string]struct{})
	records, err := remote.ListAll(ctx, repoClient, cols.Annotation, s.opts.PageSize)
	if err != nil {
		logutil.GetLogger(ctx).Warn("annotation listing failed, deleting bookmarks only", zap.Error(err))
	}
	for i := range records {
		annotated[records[i].RKey()] = struct{}{}
	}
	items := make([]batch.Item[remote.Write], 0, len(rkeys))
	for _, rkey := range rkeys {
		ops := []remote.Write{remote.DeleteWrite(cols.Bookmark, rkey)}
		if _, ok := annotated[rkey]; ok {
			ops = append(ops, remote.DeleteWrite(cols.Annotation, rkey))
		}
		items = append(items, batch.Item[remote.Write]{Key: rkey, Ops: ops})
	}
	res := writeGroups(ctx, repoClient, s.writes, items, "bulk_delete")
	logutil.GetLogger(ctx).Info("bulk delete finished",
		zap.String("owner", ownerID), zap.Int("succeeded", len(res.Succeeded)), zap.Int("failed", len(res.Failed)))
	return bulkResult(rkeys, res, nil), nil
}

// EditTags adds and removes tags on the bookmarks. Records are fetched with
// bounded concurrency; a bookmark that cannot be read counts as failed.
func (s *BulkService) EditTags(ctx context.Context, ownerID string, rkeys, add, remove []string) (*model.BulkResult, error) {
	rkeys, err := normalizeRKeys(rkeys)
	if err != nil {
		return nil, err
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil, appErr.ErrInvalid
	}
	repoClient, err := s.connector.Connect(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	cols := s.opts.Collections
	logger := logutil.GetLogger(ctx).With(zap.String("owner", ownerID))

	known, err := listTagValues(ctx, repoClient, cols.Tag, s.opts.PageSize)
	if err != nil {
		logger.Warn("tag listing failed", zap.Error(err))
		known = nil
	}

	fetched := make([]*remote.BookmarkRecord, len(rkeys))
	var (
		mu       sync.Mutex
		fetchErr []string
	)
	eg := errgroup.Group{}
	eg.SetLimit(s.opts.Concurrency)
	for i, rkey := range rkeys {
		i, rkey := i, rkey
		eg.Go(func() error {
			rec, err := repoClient.GetRecord(ctx, cols.Bookmark, rkey)
			if err == nil {
				var bm remote.BookmarkRecord
				if err = rec.Decode(&bm); err == nil {
					fetched[i] = &bm
					return nil
				}
			}
			logger.Warn("bookmark fetch failed", zap.String("rkey", rkey), zap.Error(err))
			mu.Lock()
			fetchErr = append(fetchErr, rkey)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	writable := make([]string, 0, len(rkeys))
	items := make([]batch.Item[remote.Write], 0, len(rkeys))
	var wanted []string
	for i, rkey := range rkeys {
		bm := fetched[i]
		if bm == nil {
			continue
		}
		bm.Tags = reconcile.EditTags(bm.Tags, add, remove, known)
		if bm.Type == "" {
			bm.Type = cols.Bookmark
		}
		wanted = append(wanted, bm.Tags...)
		writable = append(writable, rkey)
		items = append(items, batch.Item[remote.Write]{Key: rkey, Ops: []remote.Write{remote.UpdateWrite(cols.Bookmark, rkey, *bm)}})
	}
	res := writeGroups(ctx, repoClient, s.writes, items, "bulk_tags")
	if len(res.Succeeded) > 0 {
		createMissingTags(ctx, repoClient, s.writes, s.tids, cols.Tag, known, wanted, "bulk_tags")
	}
	// keep fetch failures in request order
	failedSet := make(map[string]struct{}, len(fetchErr))
	for _, rkey := range fetchErr {
		failedSet[rkey] = struct{}{}
	}
	ordered := make([]string, 0, len(fetchErr))
	for _, rkey := range rkeys {
		if _, ok := failedSet[rkey]; ok {
			ordered = append(ordered, rkey)
		}
	}
	logger.Info("bulk tag edit finished",
		zap.Int("succeeded", len(res.Succeeded)), zap.Int("failed", len(res.Failed)+len(ordered)))
	return bulkResult(writable, res, ordered), nil
}
