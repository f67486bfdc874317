package parser

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// cleanURL returns the trimmed URL when it is absolute http or https.
func cleanURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return "", false
	}
	if uri.Host == "" {
		return "", false
	}
	return raw, true
}

// normalizeDate converts an export timestamp to RFC 3339 in UTC. Numeric
// values are epoch seconds; millisecond and microsecond values are scaled
// down. Anything unparsable becomes the current time.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return formatTime(nowFunc())
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return formatTime(nowFunc())
		}
		switch {
		case secs > 1e14:
			secs /= 1e6
		case secs > 1e11:
			secs /= 1e3
		}
		return formatTime(time.Unix(int64(secs), 0))
	}
	if ts, err := dateparse.ParseIn(raw, time.UTC); err == nil {
		return formatTime(ts)
	}
	return formatTime(nowFunc())
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

// splitTags splits raw on sep, trims every part and drops empty and
// repeated values.
func splitTags(raw string, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var parts []string
	if sep == "" {
		parts = strings.Fields(raw)
	} else {
		parts = strings.Split(raw, sep)
	}
	return cleanTags(parts)
}

func cleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}
