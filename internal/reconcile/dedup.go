// Package reconcile compares imported bookmarks with what the owner already
// has remotely: URL deduplication and canonical tag casing.
package reconcile

import (
	"net/url"
	"strings"

	"github.com/xxxsen/markport/internal/model"
)

// URLPolicy selects the optional normalization steps applied on top of the
// base rule. The base rule keeps scheme, host and path and drops query,
// fragment, user info and port case differences.
type URLPolicy struct {
	StripTrailingSlash bool
	StripWWW           bool
}

// NormalizeURL returns the dedup key for raw. Values that do not parse fall
// back to the trimmed input so they only match themselves.
func NormalizeURL(raw string, policy URLPolicy) string {
	raw = strings.TrimSpace(raw)
	uri, err := url.Parse(raw)
	if err != nil || uri.Host == "" {
		return raw
	}
	host := strings.ToLower(uri.Host)
	if policy.StripWWW {
		host = strings.TrimPrefix(host, "www.")
	}
	path := uri.EscapedPath()
	if policy.StripTrailingSlash {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToLower(uri.Scheme) + "://" + host + path
}

// URLSet is a lookup of normalized URLs.
type URLSet struct {
	policy URLPolicy
	keys   map[string]struct{}
}

func NewURLSet(policy URLPolicy, urls []string) *URLSet {
	s := &URLSet{policy: policy, keys: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

func (s *URLSet) Add(raw string) {
	s.keys[NormalizeURL(raw, s.policy)] = struct{}{}
}

func (s *URLSet) Contains(raw string) bool {
	_, ok := s.keys[NormalizeURL(raw, s.policy)]
	return ok
}

func (s *URLSet) Len() int {
	return len(s.keys)
}

// Filter keeps the bookmarks whose URL is not in existing. Repeats inside
// items are dropped as well, the first occurrence wins.
func Filter(items []model.ImportedBookmark, existing *URLSet) ([]model.ImportedBookmark, int) {
	seen := NewURLSet(existing.policy, nil)
	kept := make([]model.ImportedBookmark, 0, len(items))
	for _, item := range items {
		if existing.Contains(item.URL) || seen.Contains(item.URL) {
			continue
		}
		seen.Add(item.URL)
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}
