package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/errcode"
	"github.com/xxxsen/markport/internal/pkg/response"
	"github.com/xxxsen/markport/internal/service"
)

// multipartOverhead is the room left for boundaries and headers on top of
// the file size limit.
const multipartOverhead = 64 * 1024

type Importer interface {
	StartImport(ctx context.Context, ownerID string, content []byte) (*service.StartResult, error)
	ProcessNext(ctx context.Context, ownerID, jobID string) (*service.ProcessResult, error)
	Status(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error)
}

type ImportHandler struct {
	imports       Importer
	maxUploadSize int64
}

func NewImportHandler(imports Importer, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxUploadSize: maxUploadSize}
}

func (h *ImportHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, errcode.FileTooLarge, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
}

// Upload accepts a multipart "file" and creates the import job.
func (h *ImportHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		h.tooLarge(c)
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	content, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.InvalidFile, "failed to read file")
		return
	}

	res, err := h.imports.StartImport(c.Request.Context(), getOwnerID(c), content)
	if err != nil {
		handleError(c, err)
		return
	}
	if res.Result != nil {
		response.Success(c, gin.H{"result": res.Result})
		return
	}
	response.Success(c, gin.H{
		"jobId":       res.JobID,
		"format":      res.Format,
		"total":       res.Total,
		"skipped":     res.Skipped,
		"toImport":    res.ToImport,
		"totalChunks": res.TotalChunks,
	})
}

// Process handles the next chunk of the job.
func (h *ImportHandler) Process(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "job_id required")
		return
	}
	res, err := h.imports.ProcessNext(c.Request.Context(), getOwnerID(c), jobID)
	if err != nil {
		handleError(c, err)
		return
	}
	payload := gin.H{
		"done":          res.Done,
		"imported":      res.Imported,
		"failed":        res.Failed,
		"totalImported": res.TotalImported,
		"totalFailed":   res.TotalFailed,
		"remaining":     res.Remaining,
	}
	if res.Result != nil {
		payload["result"] = res.Result
	}
	response.Success(c, payload)
}

func (h *ImportHandler) Status(c *gin.Context) {
	job, err := h.imports.Status(c.Request.Context(), getOwnerID(c), c.Param("job_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	payload := gin.H{
		"jobId":           job.ID,
		"status":          job.Status,
		"format":          job.Format,
		"total":           job.Total,
		"skipped":         job.Skipped,
		"imported":        job.Imported,
		"failed":          job.Failed,
		"totalChunks":     job.TotalChunks,
		"processedChunks": job.ProcessedChunks,
		"remaining":       job.Remaining(),
		"createdAt":       job.Ctime,
		"updatedAt":       job.Mtime,
	}
	if job.Error != "" {
		payload["error"] = job.Error
	}
	if job.Status == model.ImportStatusCompleted {
		payload["result"] = job.Summary()
	}
	response.Success(c, payload)
}
