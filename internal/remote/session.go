// Package remote talks to the owner's record repository over XRPC.
package remote

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// Session is an authenticated channel to one owner's repository. Path is
// relative to the service root, e.g. "/xrpc/com.atproto.repo.listRecords".
type Session interface {
	DID() string
	Request(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error)
}

type httpSession struct {
	client      *http.Client
	serviceURL  string
	did         string
	accessToken string
}

func NewHTTPSession(client *http.Client, serviceURL, did, accessToken string) Session {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpSession{
		client:      client,
		serviceURL:  strings.TrimRight(serviceURL, "/"),
		did:         did,
		accessToken: accessToken,
	}
}

func (s *httpSession) DID() string {
	return s.did
}

func (s *httpSession) Request(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.serviceURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}
	return s.client.Do(req)
}
