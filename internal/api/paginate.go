package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// parsePagination extracts cursor and limit from query parameters.
// limit defaults to 50 and is silently capped at 200.
func parsePagination(r *http.Request) (cursor string, limit int) {
	cursor = decodeCursor(r.URL.Query().Get("cursor"))
	limit = defaultLimit

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return cursor, limit
}

// page returns up to limit items following the item whose key is after,
// plus the cursor for the next page ("" on the last page). items must be in
// a stable order. An unknown cursor starts from the beginning.
func page[T any](items []T, after string, limit int, key func(T) string) ([]T, string) {
	start := 0
	if after != "" {
		for i, it := range items {
			if key(it) == after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(items))
	out := items[start:end]
	if end == len(items) || len(out) == 0 {
		return out, ""
	}
	return out, encodeCursor(key(out[len(out)-1]))
}

// encodeCursor encodes an opaque pagination cursor from the last item's key.
func encodeCursor(value string) string {
	return base64.URLEncoding.EncodeToString([]byte(value))
}

// decodeCursor decodes an opaque pagination cursor back to the original string.
// Returns an empty string if the cursor is empty or invalid.
func decodeCursor(cursor string) string {
	if cursor == "" {
		return ""
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return ""
	}
	return string(b)
}
