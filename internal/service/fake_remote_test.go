package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/remote"
)

// fakeRepo is an in-memory record repository with all-or-nothing
// applyWrites semantics.
type fakeRepo struct {
	mu         sync.Mutex
	did        string
	records    map[string]map[string]json.RawMessage
	listErr    map[string]error
	getErr     map[string]error
	writeErr   func(writes []remote.Write) error
	applyCalls int
}

func newFakeRepo(did string) *fakeRepo {
	return &fakeRepo{
		did:     did,
		records: make(map[string]map[string]json.RawMessage),
		listErr: make(map[string]error),
		getErr:  make(map[string]error),
	}
}

func (f *fakeRepo) DID() string {
	return f.did
}

func (f *fakeRepo) put(collection, rkey string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	if f.records[collection] == nil {
		f.records[collection] = make(map[string]json.RawMessage)
	}
	f.records[collection][rkey] = data
}

func (f *fakeRepo) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[collection])
}

func (f *fakeRepo) values(collection string, dst func(raw json.RawMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, raw := range f.records[collection] {
		dst(raw)
	}
}

func (f *fakeRepo) ListRecords(ctx context.Context, collection, cursor string, limit int) ([]remote.Record, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[collection]; err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, len(f.records[collection]))
	for k := range f.records[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}
	out := make([]remote.Record, 0, end-start)
	for _, k := range keys[start:end] {
		out = append(out, remote.Record{
			URI:   remote.RecordURI(f.did, collection, k),
			Value: f.records[collection][k],
		})
	}
	next := ""
	if end < len(keys) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}

func (f *fakeRepo) ApplyWrites(ctx context.Context, writes []remote.Write) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if len(writes) > remote.MaxWritesPerCall {
		return fmt.Errorf("too many writes: %d", len(writes))
	}
	if f.writeErr != nil {
		if err := f.writeErr(writes); err != nil {
			return err
		}
	}
	for _, w := range writes {
		_, exists := f.records[w.Collection][w.RKey]
		switch w.Type {
		case "com.atproto.repo.applyWrites#create":
			if exists {
				return &remote.APIError{Status: 400, Name: "InvalidRequest", Message: "record exists"}
			}
		default:
			if !exists {
				return &remote.APIError{Status: 400, Name: "RecordNotFound"}
			}
		}
	}
	for _, w := range writes {
		if w.Type == "com.atproto.repo.applyWrites#delete" {
			delete(f.records[w.Collection], w.RKey)
			continue
		}
		f.put(w.Collection, w.RKey, w.Value)
	}
	return nil
}

func (f *fakeRepo) GetRecord(ctx context.Context, collection, rkey string) (*remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[rkey]; err != nil {
		return nil, err
	}
	raw, ok := f.records[collection][rkey]
	if !ok {
		return nil, &remote.APIError{Status: 400, Name: "RecordNotFound"}
	}
	return &remote.Record{URI: remote.RecordURI(f.did, collection, rkey), Value: raw}, nil
}

func (f *fakeRepo) PutRecord(ctx context.Context, collection, rkey string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(collection, rkey, value)
	return nil
}

func (f *fakeRepo) DeleteRecord(ctx context.Context, collection, rkey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[collection], rkey)
	return nil
}

type fakeConnector struct {
	mu    sync.Mutex
	repos map[string]*fakeRepo
	err   error
}

func newFakeConnector(repos ...*fakeRepo) *fakeConnector {
	c := &fakeConnector{repos: make(map[string]*fakeRepo)}
	for _, r := range repos {
		c.repos[r.did] = r
	}
	return c
}

func (c *fakeConnector) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeConnector) Connect(ctx context.Context, ownerID string) (remote.Repo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.repos[ownerID]
	if !ok {
		return nil, appErr.ErrReauthRequired
	}
	return r, nil
}

var _ remote.Repo = (*fakeRepo)(nil)

func bookmarkSubjects(f *fakeRepo, collection string) []string {
	var out []string
	f.values(collection, func(raw json.RawMessage) {
		var rec remote.BookmarkRecord
		_ = json.Unmarshal(raw, &rec)
		out = append(out, rec.Subject)
	})
	sort.Strings(out)
	return out
}

func tagValues(f *fakeRepo, collection string) []string {
	var out []string
	f.values(collection, func(raw json.RawMessage) {
		var rec remote.TagRecord
		_ = json.Unmarshal(raw, &rec)
		out = append(out, rec.Value)
	})
	sort.Strings(out)
	return out
}
