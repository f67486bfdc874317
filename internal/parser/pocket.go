package parser

import (
	"strings"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

// parsePocket reads the Pocket CSV export:
// title,url,time_added,tags,status with "|" separated tags.
func parsePocket(content []byte) ([]model.ImportedBookmark, error) {
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
		title := t.value(row, "title")
		if title == link {
			title = ""
		}
		items = append(items, model.ImportedBookmark{
			URL:       link,
			Title:     title,
			Tags:      splitTags(t.value(row, "tags"), "|"),
			CreatedAt: normalizeDate(t.value(row, "time_added")),
		})
	}
	return items, nil
}

func encodePocket(items []model.ImportedBookmark) []byte {
	var sb strings.Builder
	writeRecord(&sb, []string{"title", "url", "time_added", "tags", "status"})
	for _, item := range items {
		writeRecord(&sb, []string{
			item.Title,
			item.URL,
			epochSeconds(item.CreatedAt),
			strings.Join(item.Tags, "|"),
			"unread",
		})
	}
	return []byte(sb.String())
}
