package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

const netscapeSample = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Reading</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/doc/" ADD_DATE="1700000000" TAGS="go,docs">Go &amp; docs</A>
        <DD>Official documentation
        <DT><A HREF="javascript:void(0)">bookmarklet</A>
        <DT><A HREF="http://example.com/a">Example</A>
    </DL><p>
</DL><p>
`

const pinboardSample = `[
  {"href":"https://go.dev/","description":"Go","extended":"The Go site","tags":"go lang","time":"2023-11-14T22:13:20Z"},
  {"href":"ftp://files.example.com/","description":"ftp","tags":"","time":""},
  {"href":"https://pkg.go.dev/","description":"Packages","extended":"","tags":["go","pkg"],"time":"2023-11-14T22:13:20Z"}
]`

const pocketSample = "title,url,time_added,tags,status\n" +
	"Go,https://go.dev/,1700000000,go|lang,unread\n" +
	"\"Quoted, title\",https://example.com/q,1700000000,,archive\n" +
	"mailto,mailto:me@example.com,1700000000,,unread\n"

const instapaperSample = "URL,Title,Selection,Folder,Timestamp,Tags\n" +
	"https://go.dev/,Go,\"He said \"\"hi\"\"\",Programming,1700000000,\"[\"\"go\"\"]\"\n" +
	"https://example.com/,Example,,Unread,1700000000,\n"

func fixNow(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	old := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = old })
	return now
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
		ok      bool
	}{
		{name: "netscape doctype", content: netscapeSample, want: FormatNetscape, ok: true},
		{name: "netscape without doctype", content: "<DL><p><DT><A HREF=\"https://a.com\">a</A></DL>", want: FormatNetscape, ok: true},
		{name: "pinboard", content: pinboardSample, want: FormatPinboard, ok: true},
		{name: "json array with url field", content: `[{"url":"https://a.com"}]`, want: FormatPinboard, ok: true},
		{name: "pocket", content: pocketSample, want: FormatPocket, ok: true},
		{name: "instapaper", content: instapaperSample, want: FormatInstapaper, ok: true},
		{name: "plain url title sheet", content: "url,title\nhttps://a.com,a\n", want: FormatInstapaper, ok: true},
		{name: "bom prefixed sheet", content: "\xEF\xBB\xBFurl,title\nhttps://a.com,a\n", want: FormatInstapaper, ok: true},
		{name: "json object", content: `{"href":"https://a.com"}`, ok: false},
		{name: "json array without url", content: `[{"name":"a"}]`, ok: false},
		{name: "empty json array", content: " [ ]\n", want: FormatPinboard, ok: true},
		{name: "json array of strings", content: `["https://a.com"]`, ok: false},
		{name: "truncated json array", content: `[`, ok: false},
		{name: "sheet without title", content: "url,name\nhttps://a.com,a\n", ok: false},
		{name: "plain text", content: "hello world", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect([]byte(tt.content))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnrecognized(t *testing.T) {
	_, items, err := Parse([]byte("just,some\nrandom,data\n"))
	require.ErrorIs(t, err, appErr.ErrFormatUnrecognized)
	require.Nil(t, items)
}

func TestParseNetscape(t *testing.T) {
	now := fixNow(t)
	format, items, err := Parse([]byte(netscapeSample))
	require.NoError(t, err)
	require.Equal(t, FormatNetscape, format)
	require.Len(t, items, 2)

	assert.Equal(t, "https://go.dev/doc/", items[0].URL)
	assert.Equal(t, "Go & docs", items[0].Title)
	assert.Equal(t, "Official documentation", items[0].Description)
	assert.Equal(t, []string{"go", "docs"}, items[0].Tags)
	assert.Equal(t, "2023-11-14T22:13:20Z", items[0].CreatedAt)

	assert.Equal(t, "http://example.com/a", items[1].URL)
	assert.Equal(t, "", items[1].Description)
	assert.Empty(t, items[1].Tags)
	assert.Equal(t, formatTime(now), items[1].CreatedAt)
}

func TestParsePinboard(t *testing.T) {
	format, items, err := Parse([]byte(pinboardSample))
	require.NoError(t, err)
	require.Equal(t, FormatPinboard, format)
	require.Len(t, items, 2)
	assert.Equal(t, "Go", items[0].Title)
	assert.Equal(t, "The Go site", items[0].Description)
	assert.Equal(t, []string{"go", "lang"}, items[0].Tags)
	assert.Equal(t, "2023-11-14T22:13:20Z", items[0].CreatedAt)
	assert.Equal(t, []string{"go", "pkg"}, items[1].Tags)
}

func TestParsePinboardDropsBadElements(t *testing.T) {
	now := fixNow(t)
	content := `[
  {"url":"https://a.example/x","time":1700000000,"title":"Generic export"},
  {"href":"https://b.example/","description":["not","a","string"],"shared":false,"time":null},
  "https://c.example/",
  {"href":42},
  null,
  {"href":"","url":"https://d.example/","description":"Described","title":"Ignored","time":"1700000000000"}
]`
	format, items, err := Parse([]byte(content))
	require.NoError(t, err)
	require.Equal(t, FormatPinboard, format)
	require.Len(t, items, 3)

	assert.Equal(t, "https://a.example/x", items[0].URL)
	assert.Equal(t, "Generic export", items[0].Title)
	assert.Equal(t, "2023-11-14T22:13:20Z", items[0].CreatedAt)

	assert.Equal(t, "https://b.example/", items[1].URL)
	assert.Equal(t, "", items[1].Title)
	assert.Equal(t, formatTime(now), items[1].CreatedAt)

	assert.Equal(t, "https://d.example/", items[2].URL)
	assert.Equal(t, "Described", items[2].Title)
	assert.Equal(t, "2023-11-14T22:13:20Z", items[2].CreatedAt)
}

func TestParsePinboardEmptyExport(t *testing.T) {
	format, items, err := Parse([]byte("[]"))
	require.NoError(t, err)
	assert.Equal(t, FormatPinboard, format)
	assert.Empty(t, items)

	_, err = ParseAs(FormatPinboard, []byte(`[{"href":"https://a.com"`))
	assert.ErrorIs(t, err, appErr.ErrFormatUnrecognized)
}

func TestParsePocket(t *testing.T) {
	format, items, err := Parse([]byte(pocketSample))
	require.NoError(t, err)
	require.Equal(t, FormatPocket, format)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"go", "lang"}, items[0].Tags)
	assert.Equal(t, "2023-11-14T22:13:20Z", items[0].CreatedAt)
	assert.Equal(t, "Quoted, title", items[1].Title)
	assert.Equal(t, "https://example.com/q", items[1].URL)
	assert.Empty(t, items[1].Tags)
}

func TestParseInstapaper(t *testing.T) {
	format, items, err := Parse([]byte(instapaperSample))
	require.NoError(t, err)
	require.Equal(t, FormatInstapaper, format)
	require.Len(t, items, 2)
	assert.Equal(t, `He said "hi"`, items[0].Description)
	assert.Equal(t, []string{"go", "Programming"}, items[0].Tags)
	assert.Empty(t, items[1].Tags)
}

func TestParseTabularDropsInvalidRows(t *testing.T) {
	content := "url,title\n" +
		"https://a.example.com/1,One\n" +
		"https://a.example.com/2,Two\n" +
		"ftp://a.example.com/3,Three\n" +
		"http://a.example.com/4,Four\n"
	_, items, err := Parse([]byte(content))
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.NotContains(t, item.URL, "ftp://")
	}
}

func TestReadRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    [][]string
	}{
		{
			name:    "simple",
			content: "a,b\nc,d\n",
			want:    [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:    "escaped quote",
			content: `"say ""hi""",x`,
			want:    [][]string{{`say "hi"`, "x"}},
		},
		{
			name:    "quoted delimiter and newline",
			content: "\"a,b\nc\",d\r\ne,f",
			want:    [][]string{{"a,b\nc", "d"}, {"e", "f"}},
		},
		{
			name:    "blank lines skipped",
			content: "a\n\n\nb\n",
			want:    [][]string{{"a"}, {"b"}},
		},
		{
			name:    "empty quoted field kept",
			content: "\"\"\n",
			want:    [][]string{{""}},
		},
		{
			name:    "trailing empty field",
			content: "a,\n",
			want:    [][]string{{"a", ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readRecords(tt.content))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	now := fixNow(t)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "seconds", raw: "1700000000", want: "2023-11-14T22:13:20Z"},
		{name: "milliseconds", raw: "1700000000000", want: "2023-11-14T22:13:20Z"},
		{name: "microseconds", raw: "1700000000000000", want: "2023-11-14T22:13:20Z"},
		{name: "rfc3339", raw: "2023-11-14T22:13:20Z", want: "2023-11-14T22:13:20Z"},
		{name: "date only", raw: "2023-11-14", want: "2023-11-14T00:00:00Z"},
		{name: "empty", raw: "", want: formatTime(now)},
		{name: "zero", raw: "0", want: formatTime(now)},
		{name: "garbage", raw: "not a date", want: formatTime(now)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDate(tt.raw))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	items := []model.ImportedBookmark{
		{
			URL:         "https://go.dev/",
			Title:       "Go, the language",
			Description: `A "quoted" note`,
			Tags:        []string{"go", "lang"},
			CreatedAt:   "2023-11-14T22:13:20Z",
		},
		{
			URL:       "https://example.com/a?b=c&d=e",
			Title:     "Example",
			Tags:      []string{},
			CreatedAt: "2024-01-02T03:04:05Z",
		},
	}
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			raw, err := Encode(format, items)
			require.NoError(t, err)

			detected, ok := Detect(raw)
			require.True(t, ok)
			require.Equal(t, format, detected)

			got, err := ParseAs(format, raw)
			require.NoError(t, err)
			require.Len(t, got, len(items))
			for i := range items {
				assert.Equal(t, items[i].URL, got[i].URL)
				assert.Equal(t, items[i].Title, got[i].Title)
				assert.Equal(t, items[i].Tags, got[i].Tags)
				assert.Equal(t, items[i].CreatedAt, got[i].CreatedAt)
				if format != FormatPocket {
					assert.Equal(t, items[i].Description, got[i].Description)
				}
			}
		})
	}
}

func TestEncodeEmptyRoundTrip(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			raw, err := Encode(format, nil)
			require.NoError(t, err)
			detected, ok := Detect(raw)
			require.True(t, ok)
			require.Equal(t, format, detected)
			got, err := ParseAs(format, raw)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := Encode(Format("delicious"), nil)
	require.ErrorIs(t, err, appErr.ErrFormatUnrecognized)
}
