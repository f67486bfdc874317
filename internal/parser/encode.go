package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

// Encode writes items in the canonical layout of format. Parsing the output
// again yields the same format and the same bookmarks.
func Encode(format Format, items []model.ImportedBookmark) ([]byte, error) {
	switch format {
	case FormatNetscape:
		return encodeNetscape(items), nil
	case FormatPinboard:
		return encodePinboard(items)
	case FormatPocket:
		return encodePocket(items), nil
	case FormatInstapaper:
		return encodeInstapaper(items)
	default:
		return nil, fmt.Errorf("encode %q: %w", format, appErr.ErrFormatUnrecognized)
	}
}

func epochSeconds(createdAt string) string {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(ts.Unix(), 10)
}
