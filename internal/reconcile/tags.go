package reconcile

import (
	"strings"

	"github.com/xxxsen/markport/internal/model"
)

// TagSet maps the case-folded form of a tag to its canonical casing.
type TagSet struct {
	canonical map[string]string
}

func NewTagSet(known []string) *TagSet {
	s := &TagSet{canonical: make(map[string]string, len(known))}
	for _, tag := range known {
		s.add(tag)
	}
	return s
}

func foldTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func (s *TagSet) add(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	key := foldTag(tag)
	if key == "" {
		return "", false
	}
	if existing, ok := s.canonical[key]; ok {
		return existing, false
	}
	s.canonical[key] = tag
	return tag, true
}

// Canonicalize rewrites tags to canonical casing, registering unseen ones
// with their first observed casing. The result holds no case-folded repeats.
// Tags registered by this call are returned in created.
func (s *TagSet) Canonicalize(tags []string) (result []string, created []string) {
	result = make([]string, 0, len(tags))
	local := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		value, isNew := s.add(tag)
		if value == "" {
			continue
		}
		if isNew {
			created = append(created, value)
		}
		key := foldTag(value)
		if _, ok := local[key]; ok {
			continue
		}
		local[key] = struct{}{}
		result = append(result, value)
	}
	return result, created
}

// ResolveTags canonicalizes the tags of every bookmark against known. It
// returns the rewritten bookmarks and the tags that do not exist yet, each
// listed once.
func ResolveTags(items []model.ImportedBookmark, known []string) ([]model.ImportedBookmark, []string) {
	set := NewTagSet(known)
	out := make([]model.ImportedBookmark, len(items))
	newTags := make([]string, 0)
	for i, item := range items {
		tags, created := set.Canonicalize(item.Tags)
		item.Tags = tags
		out[i] = item
		newTags = append(newTags, created...)
	}
	return out, newTags
}

// EditTags applies a bulk edit to current. Removals match case-insensitively;
// additions reuse the casing already present in current or known.
func EditTags(current, add, remove, known []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, tag := range remove {
		if key := foldTag(tag); key != "" {
			drop[key] = struct{}{}
		}
	}
	set := NewTagSet(known)
	kept := make([]string, 0, len(current)+len(add))
	for _, tag := range current {
		if _, ok := drop[foldTag(tag)]; ok {
			continue
		}
		kept = append(kept, tag)
	}
	for _, tag := range kept {
		set.canonical[foldTag(tag)] = strings.TrimSpace(tag)
	}
	for _, tag := range add {
		if _, ok := drop[foldTag(tag)]; ok {
			continue
		}
		kept = append(kept, tag)
	}
	result, _ := set.Canonicalize(kept)
	return result
}
