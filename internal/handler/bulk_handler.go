package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/errcode"
	"github.com/xxxsen/markport/internal/pkg/response"
)

type BulkEditor interface {
	Delete(ctx context.Context, ownerID string, rkeys []string) (*model.BulkResult, error)
	EditTags(ctx context.Context, ownerID string, rkeys, add, remove []string) (*model.BulkResult, error)
}

type BulkHandler struct {
	bulk BulkEditor
}

func NewBulkHandler(bulk BulkEditor) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

type bulkDeleteRequest struct {
	RKeys []string `json:"rkeys"`
}

type bulkTagsRequest struct {
	RKeys  []string `json:"rkeys"`
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (h *BulkHandler) Delete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
		return
	}
	res, err := h.bulk.Delete(c.Request.Context(), getOwnerID(c), req.RKeys)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"succeeded": res.Succeeded, "failed": res.Failed})
}

func (h *BulkHandler) Tags(c *gin.Context) {
	var req bulkTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
		return
	}
	res, err := h.bulk.EditTags(c.Request.Context(), getOwnerID(c), req.RKeys, req.Add, req.Remove)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"succeeded": res.Succeeded, "failed": res.Failed})
}
