package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/errcode"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

const apiPrefix = "/api/v1"

type UploadResponse struct {
	JobID       string               `json:"jobId"`
	Format      string               `json:"format"`
	Total       int                  `json:"total"`
	Skipped     int                  `json:"skipped"`
	ToImport    int                  `json:"toImport"`
	TotalChunks int                  `json:"totalChunks"`
	Result      *model.ImportSummary `json:"result"`
}

type ProcessResponse struct {
	Done          bool                 `json:"done"`
	Imported      int                  `json:"imported"`
	Failed        int                  `json:"failed"`
	TotalImported int                  `json:"totalImported"`
	TotalFailed   int                  `json:"totalFailed"`
	Remaining     int                  `json:"remaining"`
	Result        *model.ImportSummary `json:"result"`
}

type StatusResponse struct {
	JobID           string               `json:"jobId"`
	Status          string               `json:"status"`
	Format          string               `json:"format"`
	Total           int                  `json:"total"`
	Skipped         int                  `json:"skipped"`
	Imported        int                  `json:"imported"`
	Failed          int                  `json:"failed"`
	TotalChunks     int                  `json:"totalChunks"`
	ProcessedChunks int                  `json:"processedChunks"`
	Remaining       int                  `json:"remaining"`
	Error           string               `json:"error"`
	Result          *model.ImportSummary `json:"result"`
}

// ServerError is a non-2xx answer of the import server.
type ServerError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status=%d code=%s", e.Status, e.Code)
	}
	return fmt.Sprintf("server error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func (e *ServerError) Unwrap() error {
	switch e.Code {
	case errcode.ReauthRequired, errcode.Unauthorized:
		return appErr.ErrReauthRequired
	case errcode.JobFailed:
		return appErr.ErrJobFailed
	case errcode.EmptyFile:
		return appErr.ErrEmptyFile
	case errcode.FileTooLarge:
		return appErr.ErrFileTooLarge
	case errcode.FormatUnrecognized:
		return appErr.ErrFormatUnrecognized
	case errcode.NotFound:
		return appErr.ErrNotFound
	case errcode.Forbidden:
		return appErr.ErrForbidden
	case errcode.TooMany:
		return appErr.ErrTooMany
	}
	if e.Status == http.StatusUnauthorized {
		return appErr.ErrReauthRequired
	}
	return nil
}

func (e *ServerError) temporary() bool {
	return e.Retryable || e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Client talks to the import endpoints of a markport server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) Upload(ctx context.Context, filename string, content []byte) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out := &UploadResponse{}
	if err := c.do(ctx, http.MethodPost, "/import", &buf, mw.FormDataContentType(), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Process(ctx context.Context, jobID string) (*ProcessResponse, error) {
	out := &ProcessResponse{}
	if err := c.do(ctx, http.MethodPost, "/import/"+url.PathEscape(jobID)+"/process", nil, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	out := &StatusResponse{}
	if err := c.do(ctx, http.MethodGet, "/import/"+url.PathEscape(jobID), nil, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

type errorBody struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &ServerError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			se.Code, se.Message, se.Retryable = eb.Code, eb.Error, eb.Retryable
		}
		return se
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isTemporary reports whether a call may succeed when repeated.
func isTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.temporary()
	}
	// transport level failures
	return true
}
