// Package parser detects bookmark export formats and converts them into
// ImportedBookmark lists. Detection looks at content only, never at file names.
package parser

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xxxsen/markport/internal/model"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

type Format string

const (
	FormatNetscape   Format = "netscape"
	FormatPinboard   Format = "pinboard"
	FormatPocket     Format = "pocket"
	FormatInstapaper Format = "instapaper"
)

// Formats lists every recognized format in detection order.
var Formats = []Format{FormatNetscape, FormatPinboard, FormatPocket, FormatInstapaper}

func (f Format) Valid() bool {
	for _, item := range Formats {
		if item == f {
			return true
		}
	}
	return false
}

var nowFunc = time.Now

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detect returns the format that claims content. The checks run in a fixed
// order: markup marker, JSON array, then tabular header.
func Detect(content []byte) (Format, bool) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if isNetscape(content) {
		return FormatNetscape, true
	}
	if isPinboard(content) {
		return FormatPinboard, true
	}
	if format, ok := detectTabular(content); ok {
		return format, true
	}
	return "", false
}

// Parse detects the format and parses content with the matching parser.
func Parse(content []byte) (Format, []model.ImportedBookmark, error) {
	format, ok := Detect(content)
	if !ok {
		return "", nil, appErr.ErrFormatUnrecognized
	}
	items, err := ParseAs(format, content)
	if err != nil {
		return "", nil, err
	}
	return format, items, nil
}

func ParseAs(format Format, content []byte) ([]model.ImportedBookmark, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	switch format {
	case FormatNetscape:
		return parseNetscape(content)
	case FormatPinboard:
		return parsePinboard(content)
	case FormatPocket:
		return parsePocket(content)
	case FormatInstapaper:
		return parseInstapaper(content)
	default:
		return nil, fmt.Errorf("parse %q: %w", format, appErr.ErrFormatUnrecognized)
	}
}
