package parser

import (
	"encoding/json"
	"strings"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

// Instapaper folders that describe reading state rather than a topic.
var instapaperStateFolders = map[string]bool{
	"unread":  true,
	"archive": true,
	"starred": true,
}

// parseInstapaper reads the Instapaper CSV export:
// URL,Title,Selection,Folder,Timestamp[,Tags]. It also accepts any sheet with
// url and title columns.
func parseInstapaper(content []byte) ([]model.ImportedBookmark, error) {
	t, ok := newTable(content)
	if !ok || !t.has("url") {
		return nil, appErr.ErrFormatUnrecognized
	}
	items := make([]model.ImportedBookmark, 0, len(t.rows))
	for _, row := range t.rows {
		link, ok := cleanURL(t.value(row, "url"))
		if !ok {
			continue
		}
		tags := parseInstapaperTags(t.value(row, "tags"))
		if folder := t.value(row, "folder"); folder != "" && !instapaperStateFolders[strings.ToLower(folder)] {
			tags = cleanTags(append(tags, folder))
		}
		description := t.value(row, "selection")
		if description == "" {
			description = t.value(row, "description")
		}
		created := t.value(row, "timestamp")
		if created == "" {
			created = t.value(row, "created")
		}
		items = append(items, model.ImportedBookmark{
			URL:         link,
			Title:       t.value(row, "title"),
			Description: description,
			Tags:        tags,
			CreatedAt:   normalizeDate(created),
		})
	}
	return items, nil
}

func parseInstapaperTags(raw string) []string {
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return cleanTags(tags)
		}
	}
	return splitTags(raw, ",")
}

func encodeInstapaper(items []model.ImportedBookmark) ([]byte, error) {
	var sb strings.Builder
	writeRecord(&sb, []string{"URL", "Title", "Selection", "Folder", "Timestamp", "Tags"})
	for _, item := range items {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		raw, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		writeRecord(&sb, []string{
			item.URL,
			item.Title,
			item.Description,
			"Unread",
			epochSeconds(item.CreatedAt),
			string(raw),
		})
	}
	return []byte(sb.String()), nil
}
