package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/batch"
	"github.com/xxxsen/markport/internal/metrics"
	"github.com/xxxsen/markport/internal/reconcile"
	"github.com/xxxsen/markport/internal/remote"
)

// writeGroups runs items through exec against repo. Group failures are
// logged and counted, never returned.
func writeGroups(ctx context.Context, repo remote.Repo, exec *batch.Executor[remote.Write], items []batch.Item[remote.Write], caller string) *batch.Result {
	return exec.Execute(ctx, items, func(ctx context.Context, group batch.Group[remote.Write]) error {
		if err := repo.ApplyWrites(ctx, group.Ops); err != nil {
			metrics.WriteGroups.WithLabelValues(caller, "failed").Inc()
			logutil.GetLogger(ctx).Warn("apply writes failed",
				zap.String("caller", caller),
				zap.Int("group", group.Index),
				zap.Int("items", len(group.Items)),
				zap.Int("ops", len(group.Ops)),
				zap.Error(err))
			return err
		}
		metrics.WriteGroups.WithLabelValues(caller, "ok").Inc()
		return nil
	})
}

// listTagValues returns the values of all tag records of repo.
func listTagValues(ctx context.Context, repo remote.Repo, collection string, pageSize int) ([]string, error) {
	records, err := remote.ListAll(ctx, repo, collection, pageSize)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(records))
	for i := range records {
		var rec remote.TagRecord
		if err := records[i].Decode(&rec); err != nil || rec.Value == "" {
			continue
		}
		values = append(values, rec.Value)
	}
	return values, nil
}

// createMissingTags writes a tag record for every tag of wanted that has no
// case-insensitive match in known. It is best effort: failures are logged.
func createMissingTags(ctx context.Context, repo remote.Repo, exec *batch.Executor[remote.Write], tids *remote.TIDClock,
	collection string, known, wanted []string, caller string) int {
	set := reconcile.NewTagSet(known)
	_, created := set.Canonicalize(wanted)
	if len(created) == 0 {
		return 0
	}
	now := time.Now().UTC().Format(time.RFC3339)
	items := make([]batch.Item[remote.Write], 0, len(created))
	for _, tag := range created {
		rec := remote.TagRecord{Type: collection, Value: tag, CreatedAt: now}
		items = append(items, batch.Item[remote.Write]{
			Key: tag,
			Ops: []remote.Write{remote.CreateWrite(collection, tids.Next(), rec)},
		})
	}
	res := writeGroups(ctx, repo, exec, items, caller)
	if len(res.Failed) > 0 {
		logutil.GetLogger(ctx).Warn("tag record creation incomplete",
			zap.Int("created", len(res.Succeeded)), zap.Int("failed", len(res.Failed)))
	}
	return len(res.Succeeded)
}
