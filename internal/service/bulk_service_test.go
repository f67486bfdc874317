package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/remote"
)

func seedBookmarks(fake *fakeRepo, keys ...string) {
	for _, k := range keys {
		fake.put(cols.Bookmark, k, remote.BookmarkRecord{Type: cols.Bookmark, Subject: "https://example.com/" + k, Tags: []string{"Go", "old"}})
	}
}

func TestBulkDeleteRemovesAnnotations(t *testing.T) {
	fake := newFakeRepo(owner)
	seedBookmarks(fake, "a", "b", "c")
	fake.put(cols.Annotation, "a", remote.AnnotationRecord{Type: cols.Annotation, Title: "A"})
	svc := NewBulkService(newFakeConnector(fake), BulkOptions{MaxOps: 3, PageSize: 1})

	res, err := svc.Delete(context.Background(), owner, []string{"a", "b", "b", " ", "missing"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Succeeded)
	assert.Equal(t, []string{"missing"}, res.Failed)
	assert.Equal(t, 1, fake.count(cols.Bookmark))
	assert.Equal(t, 0, fake.count(cols.Annotation))
}

func TestBulkDeleteIsolatesFailedGroups(t *testing.T) {
	fake := newFakeRepo(owner)
	seedBookmarks(fake, "a", "b", "c")
	fake.writeErr = func(writes []remote.Write) error {
		if writes[0].RKey == "b" {
			return errors.New("rejected")
		}
		return nil
	}
	svc := NewBulkService(newFakeConnector(fake), BulkOptions{MaxOps: 1, Concurrency: 3})
	res, err := svc.Delete(context.Background(), owner, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, res.Succeeded)
	assert.Equal(t, []string{"b"}, res.Failed)
}

func TestBulkDeleteValidation(t *testing.T) {
	svc := NewBulkService(newFakeConnector(newFakeRepo(owner)), BulkOptions{})
	_, err := svc.Delete(context.Background(), owner, []string{" ", ""})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Delete(context.Background(), "did:plc:nobody", []string{"a"})
	require.ErrorIs(t, err, appErr.ErrReauthRequired)
}

func TestBulkEditTags(t *testing.T) {
	fake := newFakeRepo(owner)
	seedBookmarks(fake, "a", "b")
	fake.put(cols.Tag, "t1", remote.TagRecord{Type: cols.Tag, Value: "Go"})
	fake.getErr["b"] = errors.New("timeout")
	svc := NewBulkService(newFakeConnector(fake), BulkOptions{})

	res, err := svc.EditTags(context.Background(), owner, []string{"a", "b", "missing"}, []string{"GO", "News"}, []string{"OLD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Succeeded)
	assert.Equal(t, []string{"b", "missing"}, res.Failed)

	fake.mu.Lock()
	raw := fake.records[cols.Bookmark]["a"]
	fake.mu.Unlock()
	var rec remote.BookmarkRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, []string{"Go", "News"}, rec.Tags)
	assert.Equal(t, "https://example.com/a", rec.Subject)
	assert.Equal(t, []string{"Go", "News"}, tagValues(fake, cols.Tag))
}

func TestBulkEditTagsNeedsChange(t *testing.T) {
	svc := NewBulkService(newFakeConnector(newFakeRepo(owner)), BulkOptions{})
	_, err := svc.EditTags(context.Background(), owner, []string{"a"}, nil, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
