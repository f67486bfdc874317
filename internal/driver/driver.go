package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

const (
	DefaultSlack      = 5
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// API is the part of the server the driver needs.
type API interface {
	Upload(ctx context.Context, filename string, content []byte) (*UploadResponse, error)
	Process(ctx context.Context, jobID string) (*ProcessResponse, error)
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
}

type Progress struct {
	JobID         string
	Call          int
	Imported      int
	Failed        int
	TotalImported int
	TotalFailed   int
	Remaining     int
}

type Options struct {
	// Slack is added to the chunk count to get the process call cap.
	Slack      int
	MaxRetries int
	RetryDelay time.Duration
	OnProgress func(Progress)
}

// Driver runs an import to completion by calling the process endpoint until
// the server reports done, at most totalChunks+Slack times.
type Driver struct {
	api  API
	opts Options
}

func New(api API, opts Options) *Driver {
	if opts.Slack <= 0 {
		opts.Slack = DefaultSlack
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Driver{api: api, opts: opts}
}

// Run uploads content and drives the resulting job.
func (d *Driver) Run(ctx context.Context, filename string, content []byte) (*model.ImportSummary, error) {
	up, err := d.api.Upload(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	logger := logutil.GetLogger(ctx)
	if up.Result != nil || up.JobID == "" {
		logger.Info("nothing to import", zap.Int("total", up.Total), zap.Int("skipped", up.Skipped))
		if up.Result == nil {
			return &model.ImportSummary{Skipped: up.Skipped, Total: up.Total, Format: up.Format}, nil
		}
		return up.Result, nil
	}
	logger.Info("import job created",
		zap.String("job_id", up.JobID),
		zap.String("format", up.Format),
		zap.Int("to_import", up.ToImport),
		zap.Int("chunks", up.TotalChunks))
	return d.Drive(ctx, up.JobID, up.TotalChunks)
}

// Drive processes an existing job. It returns ErrStalled when the call cap
// is reached before the job is done.
func (d *Driver) Drive(ctx context.Context, jobID string, totalChunks int) (*model.ImportSummary, error) {
	limit := totalChunks + d.opts.Slack
	for call := 1; call <= limit; call++ {
		res, err := d.processWithRetry(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if d.opts.OnProgress != nil {
			d.opts.OnProgress(Progress{
				JobID:         jobID,
				Call:          call,
				Imported:      res.Imported,
				Failed:        res.Failed,
				TotalImported: res.TotalImported,
				TotalFailed:   res.TotalFailed,
				Remaining:     res.Remaining,
			})
		}
		if !res.Done {
			continue
		}
		if res.Result != nil {
			return res.Result, nil
		}
		st, err := d.api.Status(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if st.Result != nil {
			return st.Result, nil
		}
		return &model.ImportSummary{Imported: st.Imported, Skipped: st.Skipped, Failed: st.Failed, Total: st.Total, Format: st.Format}, nil
	}
	logutil.GetLogger(ctx).Warn("import stalled", zap.String("job_id", jobID), zap.Int("calls", limit))
	return nil, appErr.ErrStalled
}

func (d *Driver) processWithRetry(ctx context.Context, jobID string) (*ProcessResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(d.opts.RetryDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		res, err := d.api.Process(ctx, jobID)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, appErr.ErrReauthRequired) || errors.Is(err, appErr.ErrJobFailed) || !isTemporary(err) {
			return nil, err
		}
		logutil.GetLogger(ctx).Warn("process call failed, retrying",
			zap.String("job_id", jobID), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("process job %s: %w", jobID, lastErr)
}
