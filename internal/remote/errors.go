package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

// APIError is a non-2xx answer from the record API.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("remote request failed: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote request failed: status %d: %s: %s", e.Status, e.Name, e.Message)
}

// Unwrap lets callers test for the sentinel classes with errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return appErr.ErrReauthRequired
	case e.Name == "ExpiredToken" || e.Name == "InvalidToken" || e.Name == "AuthMissing":
		return appErr.ErrReauthRequired
	case e.Status == http.StatusNotFound || e.Name == "RecordNotFound":
		return appErr.ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return appErr.ErrTooMany
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Name = payload.Error
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
