package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 100
	// MaxWritesPerCall is the applyWrites operation cap of the record API.
	MaxWritesPerCall = 10
	maxListPages     = 10000
)

// Repo is the record API surface used by the import pipeline and bulk edits.
type Repo interface {
	DID() string
	ListRecords(ctx context.Context, collection, cursor string, limit int) ([]Record, string, error)
	ApplyWrites(ctx context.Context, writes []Write) error
	GetRecord(ctx context.Context, collection, rkey string) (*Record, error)
	PutRecord(ctx context.Context, collection, rkey string, value interface{}) error
	DeleteRecord(ctx context.Context, collection, rkey string) error
}

type Client struct {
	session Session
}

func NewClient(session Session) *Client {
	return &Client{session: session}
}

func (c *Client) DID() string {
	return c.session.DID()
}

type listRecordsResponse struct {
	Records []Record `json:"records"`
	Cursor  string   `json:"cursor"`
}

func (c *Client) ListRecords(ctx context.Context, collection, cursor string, limit int) ([]Record, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := url.Values{}
	query.Set("repo", c.DID())
	query.Set("collection", collection)
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var out listRecordsResponse
	if err := c.call(ctx, http.MethodGet, "com.atproto.repo.listRecords", query, nil, &out); err != nil {
		return nil, "", err
	}
	return out.Records, out.Cursor, nil
}

// ListAll pages through collection until the API stops returning a cursor.
func ListAll(ctx context.Context, repo Repo, collection string, pageSize int) ([]Record, error) {
	var (
		all    []Record
		cursor string
	)
	for page := 0; page < maxListPages; page++ {
		records, next, err := repo.ListRecords(ctx, collection, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", collection, page, err)
		}
		all = append(all, records...)
		if next == "" || next == cursor {
			return all, nil
		}
		cursor = next
	}
	return all, nil
}

func (c *Client) ApplyWrites(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > MaxWritesPerCall {
		return fmt.Errorf("applyWrites with %d operations exceeds cap %d", len(writes), MaxWritesPerCall)
	}
	body := map[string]interface{}{
		"repo":   c.DID(),
		"writes": writes,
	}
	return c.call(ctx, http.MethodPost, "com.atproto.repo.applyWrites", nil, body, nil)
}

func (c *Client) GetRecord(ctx context.Context, collection, rkey string) (*Record, error) {
	query := url.Values{}
	query.Set("repo", c.DID())
	query.Set("collection", collection)
	query.Set("rkey", rkey)
	out := &Record{}
	if err := c.call(ctx, http.MethodGet, "com.atproto.repo.getRecord", query, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PutRecord(ctx context.Context, collection, rkey string, value interface{}) error {
	body := map[string]interface{}{
		"repo":       c.DID(),
		"collection": collection,
		"rkey":       rkey,
		"record":     value,
	}
	return c.call(ctx, http.MethodPost, "com.atproto.repo.putRecord", nil, body, nil)
}

func (c *Client) DeleteRecord(ctx context.Context, collection, rkey string) error {
	body := map[string]interface{}{
		"repo":       c.DID(),
		"collection": collection,
		"rkey":       rkey,
	}
	return c.call(ctx, http.MethodPost, "com.atproto.repo.deleteRecord", nil, body, nil)
}

func (c *Client) call(ctx context.Context, method, nsid string, query url.Values, in interface{}, out interface{}) error {
	path := "/xrpc/" + nsid
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var body io.Reader
	header := http.Header{}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
	}
	resp, err := c.session.Request(ctx, method, path, body, header)
	if err != nil {
		return fmt.Errorf("%s: %w", nsid, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", nsid, err)
	}
	return nil
}
