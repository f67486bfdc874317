package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/markport/internal/pkg/errcode"
	"github.com/xxxsen/markport/internal/pkg/response"
)

type SessionKeeper interface {
	Put(ctx context.Context, ownerID, serviceURL, accessToken string) error
	Delete(ctx context.Context, ownerID string) error
}

type SessionHandler struct {
	sessions SessionKeeper
}

func NewSessionHandler(sessions SessionKeeper) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionPutRequest struct {
	Service   string `json:"service"`
	AccessJwt string `json:"accessJwt"`
}

func (h *SessionHandler) Put(c *gin.Context) {
	var req sessionPutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
		return
	}
	if err := h.sessions.Put(c.Request.Context(), getOwnerID(c), req.Service, req.AccessJwt); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), getOwnerID(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
