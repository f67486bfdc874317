package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultBookmarkCollection   = "community.lexicon.bookmarks.bookmark"
	DefaultAnnotationCollection = "app.markport.annotation"
	DefaultTagCollection        = "app.markport.tag"
)

// Collections names the NSIDs records are written under.
type Collections struct {
	Bookmark   string
	Annotation string
	Tag        string
}

func DefaultCollections() Collections {
	return Collections{
		Bookmark:   DefaultBookmarkCollection,
		Annotation: DefaultAnnotationCollection,
		Tag:        DefaultTagCollection,
	}
}

type Record struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid,omitempty"`
	Value json.RawMessage `json:"value"`
}

// RKey returns the last path segment of the record URI.
func (r *Record) RKey() string {
	idx := strings.LastIndex(r.URI, "/")
	if idx < 0 {
		return r.URI
	}
	return r.URI[idx+1:]
}

func (r *Record) Decode(dst interface{}) error {
	return json.Unmarshal(r.Value, dst)
}

type BookmarkRecord struct {
	Type      string   `json:"$type"`
	Subject   string   `json:"subject"`
	CreatedAt string   `json:"createdAt"`
	Tags      []string `json:"tags,omitempty"`
}

// AnnotationRecord carries the title and description of a bookmark. It
// shares the bookmark's rkey and points at it by at-uri.
type AnnotationRecord struct {
	Type        string `json:"$type"`
	Subject     string `json:"subject"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type TagRecord struct {
	Type      string `json:"$type"`
	Value     string `json:"value"`
	CreatedAt string `json:"createdAt"`
}

func RecordURI(did, collection, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", did, collection, rkey)
}

const (
	writeCreate = "com.atproto.repo.applyWrites#create"
	writeUpdate = "com.atproto.repo.applyWrites#update"
	writeDelete = "com.atproto.repo.applyWrites#delete"
)

// Write is one applyWrites operation.
type Write struct {
	Type       string      `json:"$type"`
	Collection string      `json:"collection"`
	RKey       string      `json:"rkey,omitempty"`
	Value      interface{} `json:"value,omitempty"`
}

func CreateWrite(collection, rkey string, value interface{}) Write {
	return Write{Type: writeCreate, Collection: collection, RKey: rkey, Value: value}
}

func UpdateWrite(collection, rkey string, value interface{}) Write {
	return Write{Type: writeUpdate, Collection: collection, RKey: rkey, Value: value}
}

func DeleteWrite(collection, rkey string) Write {
	return Write{Type: writeDelete, Collection: collection, RKey: rkey}
}
