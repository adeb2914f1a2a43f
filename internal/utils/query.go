package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QueryInt safely parses an integer from query parameters.
// If missing or invalid, returns the provided default.
func QueryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// QueryBool returns nil when the parameter is absent or not a boolean.
func QueryBool(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// QueryTime accepts RFC3339 timestamps or plain dates (2006-01-02).
func QueryTime(q url.Values, key string) (*time.Time, bool) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// Page clamps page and limit query parameters.
func Page(q url.Values, defLimit, maxLimit int) (page, limit int) {
	page = QueryInt(q, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = QueryInt(q, "limit", defLimit)
	if limit < 1 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
