package model

type ImportedBookmark struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
}

// HasAnnotation reports whether the bookmark carries text that is stored in
// the companion annotation record.
func (b *ImportedBookmark) HasAnnotation() bool {
	return b.Title != "" || b.Description != ""
}
