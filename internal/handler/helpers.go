package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/middleware"
	"github.com/xxxsen/markport/internal/pkg/errcode"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/pkg/response"
)

func getOwnerID(c *gin.Context) string {
	return c.GetString(middleware.ContextOwnerIDKey)
}

type errorClass struct {
	target  error
	status  int
	code    string
	message string
}

// errorClasses is checked in order; an empty message means the error text
// is returned as is.
var errorClasses = []errorClass{
	{appErr.ErrEmptyFile, http.StatusBadRequest, errcode.EmptyFile, ""},
	{appErr.ErrFileTooLarge, http.StatusRequestEntityTooLarge, errcode.FileTooLarge, ""},
	{appErr.ErrFormatUnrecognized, http.StatusBadRequest, errcode.FormatUnrecognized, ""},
	{appErr.ErrInvalid, http.StatusBadRequest, errcode.Invalid, "invalid request"},
	{appErr.ErrReauthRequired, http.StatusUnauthorized, errcode.ReauthRequired, appErr.ErrReauthRequired.Error()},
	{appErr.ErrUnauthorized, http.StatusUnauthorized, errcode.Unauthorized, "unauthorized"},
	{appErr.ErrForbidden, http.StatusForbidden, errcode.Forbidden, "forbidden"},
	{appErr.ErrNotFound, http.StatusNotFound, errcode.NotFound, "not found"},
	{appErr.ErrJobFailed, http.StatusConflict, errcode.JobFailed, ""},
	{appErr.ErrConflict, http.StatusConflict, errcode.Conflict, "conflict"},
	{appErr.ErrTooMany, http.StatusTooManyRequests, errcode.TooMany, "too many requests"},
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("owner", getOwnerID(c)),
	)
	for _, class := range errorClasses {
		if !errors.Is(err, class.target) {
			continue
		}
		logger.Warn("request rejected", zap.Int("status", class.status), zap.Error(err))
		msg := class.message
		if msg == "" {
			msg = err.Error()
		}
		response.Error(c, class.status, class.code, msg)
		return
	}
	logger.Error("request failed", zap.Error(err))
	response.ErrorWith(c, http.StatusInternalServerError, errcode.Storage, "storage unavailable, please retry", gin.H{"retryable": true})
}
