package parser

import (
	"bytes"
	"html"
	"io"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/xxxsen/markport/internal/model"
)

const netscapeDoctype = "<!DOCTYPE NETSCAPE-Bookmark-file-1>"

func isNetscape(content []byte) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	upper := bytes.ToUpper(head)
	if bytes.Contains(upper, []byte(strings.ToUpper(netscapeDoctype))) {
		return true
	}
	return bytes.Contains(upper, []byte("<DL>")) && bytes.Contains(upper, []byte("<DT><A"))
}

// parseNetscape walks the token stream of a browser bookmark export. A <DD>
// that directly follows an anchor holds that bookmark's description; it is
// never closed, so it ends at the next structural tag.
func parseNetscape(content []byte) ([]model.ImportedBookmark, error) {
	var (
		items   []model.ImportedBookmark
		current *netscapeLink
		inLink  bool
		inDesc  bool
	)
	flush := func() {
		if current != nil {
			if item, ok := current.bookmark(); ok {
				items = append(items, item)
			}
		}
		current = nil
		inLink = false
		inDesc = false
	}

	z := xhtml.NewTokenizer(bytes.NewReader(content))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return nil, z.Err()
		}
		switch tt {
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "a":
				flush()
				current = &netscapeLink{}
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					current.setAttr(string(key), string(val))
				}
				inLink = tt == xhtml.StartTagToken
			case "dd":
				if current != nil {
					inLink = false
					inDesc = true
				}
			case "dt", "dl", "h3", "hr":
				flush()
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "a":
				inLink = false
			case "dl":
				flush()
			}
		case xhtml.TextToken:
			switch {
			case inLink:
				current.title.Write(z.Text())
			case inDesc:
				current.desc.Write(z.Text())
			}
		}
	}
	flush()
	if items == nil {
		items = []model.ImportedBookmark{}
	}
	return items, nil
}

type netscapeLink struct {
	href    string
	addDate string
	tags    string
	title   bytes.Buffer
	desc    bytes.Buffer
}

func (l *netscapeLink) setAttr(key, val string) {
	switch strings.ToLower(key) {
	case "href":
		l.href = val
	case "add_date":
		l.addDate = val
	case "tags":
		l.tags = val
	}
}

func (l *netscapeLink) bookmark() (model.ImportedBookmark, bool) {
	link, ok := cleanURL(l.href)
	if !ok {
		return model.ImportedBookmark{}, false
	}
	return model.ImportedBookmark{
		URL:         link,
		Title:       collapseSpace(l.title.String()),
		Description: strings.TrimSpace(l.desc.String()),
		Tags:        splitTags(l.tags, ","),
		CreatedAt:   normalizeDate(l.addDate),
	}, true
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func encodeNetscape(items []model.ImportedBookmark) []byte {
	var sb strings.Builder
	sb.WriteString(netscapeDoctype + "\n")
	sb.WriteString(`<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">` + "\n")
	sb.WriteString("<TITLE>Bookmarks</TITLE>\n<H1>Bookmarks</H1>\n<DL><p>\n")
	for _, item := range items {
		sb.WriteString(`    <DT><A HREF="`)
		sb.WriteString(html.EscapeString(item.URL))
		sb.WriteString(`" ADD_DATE="`)
		sb.WriteString(epochSeconds(item.CreatedAt))
		sb.WriteString(`"`)
		if len(item.Tags) > 0 {
			sb.WriteString(` TAGS="`)
			sb.WriteString(html.EscapeString(strings.Join(item.Tags, ",")))
			sb.WriteString(`"`)
		}
		sb.WriteString(">")
		sb.WriteString(html.EscapeString(item.Title))
		sb.WriteString("</A>\n")
		if item.Description != "" {
			sb.WriteString("    <DD>")
			sb.WriteString(html.EscapeString(item.Description))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("</DL><p>\n")
	return []byte(sb.String())
}
