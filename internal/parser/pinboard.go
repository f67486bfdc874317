package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

type pinboardEntry struct {
	Href        string          `json:"href"`
	Description string          `json:"description"`
	Extended    string          `json:"extended"`
	Tags        json.RawMessage `json:"tags"`
	Time        string          `json:"time"`
	Shared      string          `json:"shared"`
	ToRead      string          `json:"toread"`
}

// pinboardFields is one decoded array element. Values are kept raw so a
// field of an unexpected type only loses that field.
type pinboardFields map[string]json.RawMessage

// text returns the first of keys holding a string or a number. Numbers keep
// their literal form so epoch times reach normalizeDate unchanged.
func (f pinboardFields) text(keys ...string) string {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			if str = strings.TrimSpace(str); str != "" {
				return str
			}
			continue
		}
		var num json.Number
		if err := json.Unmarshal(raw, &num); err == nil {
			return num.String()
		}
	}
	return ""
}

// tags accepts both the space separated string Pinboard writes and a plain
// JSON array.
func (f pinboardFields) tags() []string {
	raw, ok := f["tags"]
	if !ok {
		return []string{}
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return splitTags(joined, "")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanTags(list)
	}
	return []string{}
}

// isPinboard reports whether content is a JSON array that is empty or whose
// first element is an object carrying a string "href" or "url" field. Only
// the first element is decoded.
func isPinboard(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return false
	}
	if !dec.More() {
		// an empty export; the closing bracket must follow
		tok, err := dec.Token()
		return err == nil && tok == json.Delim(']')
	}
	var first pinboardFields
	if err := dec.Decode(&first); err != nil {
		return false
	}
	for _, key := range []string{"href", "url"} {
		raw, ok := first[key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err == nil && value != "" {
			return true
		}
	}
	return false
}

// parsePinboard decodes every array element on its own. Elements that are
// not objects or carry no usable link are dropped.
func parsePinboard(content []byte) ([]model.ImportedBookmark, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(content, &elements); err != nil {
		return nil, appErr.ErrFormatUnrecognized
	}
	items := make([]model.ImportedBookmark, 0, len(elements))
	for _, element := range elements {
		var fields pinboardFields
		if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
			continue
		}
		link, ok := cleanURL(fields.text("href", "url"))
		if !ok {
			continue
		}
		items = append(items, model.ImportedBookmark{
			URL:         link,
			Title:       fields.text("description", "title"),
			Description: fields.text("extended"),
			Tags:        fields.tags(),
			CreatedAt:   normalizeDate(fields.text("time")),
		})
	}
	return items, nil
}

func encodePinboard(items []model.ImportedBookmark) ([]byte, error) {
	entries := make([]pinboardEntry, 0, len(items))
	for _, item := range items {
		tags, err := json.Marshal(strings.Join(item.Tags, " "))
		if err != nil {
			return nil, err
		}
		entries = append(entries, pinboardEntry{
			Href:        item.URL,
			Description: item.Title,
			Extended:    item.Description,
			Tags:        tags,
			Time:        item.CreatedAt,
			Shared:      "no",
			ToRead:      "no",
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}
